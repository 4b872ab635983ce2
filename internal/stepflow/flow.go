package stepflow

import (
	"fmt"

	"github.com/davidebenetti/artpay-checkout/pkg/enums"
)

// Step is one position in a linear multi-step sub-flow. The order is fixed:
// no branching, no skipping.
type Step int

const (
	StepInstructions Step = iota + 1
	StepDocumentUpload
	StepConfirmation
)

const (
	firstStep = StepInstructions
	lastStep  = StepConfirmation
)

// String implements fmt.Stringer.
func (s Step) String() string {
	switch s {
	case StepInstructions:
		return "instructions"
	case StepDocumentUpload:
		return "document_upload"
	case StepConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// IsValid reports whether the value is a known Step.
func (s Step) IsValid() bool {
	return s >= firstStep && s <= lastStep
}

// BankDetails parameterizes one bank-transfer flow instance. A single
// controller serves every transfer variant; only the details differ.
type BankDetails struct {
	AccountHolder string
	IBAN          string
	BIC           string
	Bank          string
	Reference     string
}

// Flow is a minimal controller over the Step enum. Next and Previous clamp
// at the bounds instead of overflowing.
type Flow struct {
	current Step
	details BankDetails
}

// New starts a flow at the given step, falling back to the first step for
// invalid input.
func New(initial Step, details BankDetails) *Flow {
	if !initial.IsValid() {
		initial = firstStep
	}
	return &Flow{current: initial, details: details}
}

// Current returns the flow's position.
func (f *Flow) Current() Step {
	return f.current
}

// Details returns the bank details this flow instance renders.
func (f *Flow) Details() BankDetails {
	return f.details
}

// GoTo jumps to a specific step.
func (f *Flow) GoTo(step Step) error {
	if !step.IsValid() {
		return fmt.Errorf("invalid step %d", int(step))
	}
	f.current = step
	return nil
}

// Next advances one step, clamped at the terminal step.
func (f *Flow) Next() Step {
	if f.current < lastStep {
		f.current++
	}
	return f.current
}

// Previous steps back once, clamped at the first step.
func (f *Flow) Previous() Step {
	if f.current > firstStep {
		f.current--
	}
	return f.current
}

// InitialStep derives where a mounting flow starts from server state. An
// order whose documentation is already uploaded, or whose transfer is
// already received, resumes directly at confirmation; a refresh must never
// regress the buyer. Callers re-derive this from a fresh order read on every
// mount, never from client memory.
func InitialStep(loanState enums.LoanState) Step {
	switch loanState {
	case enums.LoanStateDocumentationUploaded, enums.LoanStateTransferReceived:
		return StepConfirmation
	default:
		return StepInstructions
	}
}
