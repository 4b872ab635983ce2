package enums

import (
	"fmt"
	"strings"
)

// LoanState is the structured progress tag for financing and bank-transfer
// orders. It replaces the legacy convention of matching free-text strings in
// the order's customer note; the note is now a display annotation only.
type LoanState string

const (
	LoanStateNotRequested          LoanState = "not_requested"
	LoanStateRequested             LoanState = "requested"
	LoanStateObtained              LoanState = "obtained"
	LoanStateDocumentationUploaded LoanState = "documentation_uploaded"
	LoanStateTransferReceived      LoanState = "transfer_received"
)

var validLoanStates = []LoanState{
	LoanStateNotRequested,
	LoanStateRequested,
	LoanStateObtained,
	LoanStateDocumentationUploaded,
	LoanStateTransferReceived,
}

// Legacy note markers written by the old storefront. Still recognized on
// read so in-flight orders annotated before the migration resume correctly.
const (
	legacyNoteRequested    = "Richiesta prestito in corso"
	legacyNoteObtained     = "Ottenuto"
	legacyNoteDocsUploaded = "Documentazione caricata"
	legacyNoteTransferDone = "Bonifico ricevuto"
)

// String implements fmt.Stringer.
func (l LoanState) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LoanState.
func (l LoanState) IsValid() bool {
	for _, candidate := range validLoanStates {
		if candidate == l {
			return true
		}
	}
	return false
}

// Annotation renders the human-readable note for this state. Derived from
// the tag, never parsed back.
func (l LoanState) Annotation() string {
	switch l {
	case LoanStateRequested:
		return legacyNoteRequested
	case LoanStateObtained:
		return legacyNoteObtained
	case LoanStateDocumentationUploaded:
		return legacyNoteDocsUploaded
	case LoanStateTransferReceived:
		return legacyNoteTransferDone
	default:
		return ""
	}
}

// ParseLoanState converts raw input into a LoanState.
func ParseLoanState(value string) (LoanState, error) {
	for _, candidate := range validLoanStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loan state %q", value)
}

// LoanStateFromNote recovers the structured state from a legacy free-text
// customer note. Orders written after the migration carry the tag directly
// and never hit the string matching.
func LoanStateFromNote(note string) LoanState {
	switch {
	case strings.Contains(note, legacyNoteTransferDone):
		return LoanStateTransferReceived
	case strings.Contains(note, legacyNoteDocsUploaded):
		return LoanStateDocumentationUploaded
	case strings.Contains(note, legacyNoteObtained):
		return LoanStateObtained
	case strings.Contains(note, legacyNoteRequested):
		return LoanStateRequested
	default:
		return LoanStateNotRequested
	}
}
