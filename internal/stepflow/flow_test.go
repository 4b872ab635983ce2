package stepflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/davidebenetti/artpay-checkout/pkg/enums"
)

func TestNextClampsAtConfirmation(t *testing.T) {
	flow := New(StepInstructions, BankDetails{})

	assert.Equal(t, StepDocumentUpload, flow.Next())
	assert.Equal(t, StepConfirmation, flow.Next())
	assert.Equal(t, StepConfirmation, flow.Next(), "next at the terminal step must not overflow")
}

func TestPreviousClampsAtInstructions(t *testing.T) {
	flow := New(StepConfirmation, BankDetails{})

	assert.Equal(t, StepDocumentUpload, flow.Previous())
	assert.Equal(t, StepInstructions, flow.Previous())
	assert.Equal(t, StepInstructions, flow.Previous(), "previous at the first step must not underflow")
}

func TestGoToValidatesStep(t *testing.T) {
	flow := New(StepInstructions, BankDetails{})

	assert.NoError(t, flow.GoTo(StepConfirmation))
	assert.Equal(t, StepConfirmation, flow.Current())

	assert.Error(t, flow.GoTo(Step(0)))
	assert.Error(t, flow.GoTo(Step(4)))
	assert.Equal(t, StepConfirmation, flow.Current(), "failed GoTo must not move the flow")
}

func TestNewFallsBackToFirstStep(t *testing.T) {
	flow := New(Step(99), BankDetails{})
	assert.Equal(t, StepInstructions, flow.Current())
}

func TestInitialStepResumesFromServerState(t *testing.T) {
	tests := []struct {
		loanState enums.LoanState
		want      Step
	}{
		{enums.LoanStateNotRequested, StepInstructions},
		{enums.LoanStateRequested, StepInstructions},
		{enums.LoanStateObtained, StepInstructions},
		{enums.LoanStateDocumentationUploaded, StepConfirmation},
		{enums.LoanStateTransferReceived, StepConfirmation},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InitialStep(tt.loanState), "loan state %s", tt.loanState)
	}
}

func TestInitialStepFromLegacyNote(t *testing.T) {
	// Orders annotated by the old storefront carry only the Italian note;
	// resuming mid-flow must land on confirmation, not instructions.
	state := enums.LoanStateFromNote("31/07 Documentazione caricata dal cliente")
	assert.Equal(t, StepConfirmation, InitialStep(state))
}

func TestFlowCarriesBankDetails(t *testing.T) {
	details := BankDetails{
		AccountHolder: "ArtPay S.r.l.",
		IBAN:          "IT60X0542811101000000123456",
		BIC:           "BPMOIT22",
		Bank:          "Banco BPM",
		Reference:     "Ordine 42",
	}
	flow := New(StepInstructions, details)
	assert.Equal(t, details, flow.Details())
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "instructions", StepInstructions.String())
	assert.Equal(t, "document_upload", StepDocumentUpload.String())
	assert.Equal(t, "confirmation", StepConfirmation.String())
}
