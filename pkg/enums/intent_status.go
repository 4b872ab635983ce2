package enums

import "fmt"

// IntentStatus mirrors the payment processor's intent lifecycle.
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresCapture       IntentStatus = "requires_capture"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusCanceled              IntentStatus = "canceled"
)

var validIntentStatuses = []IntentStatus{
	IntentStatusRequiresPaymentMethod,
	IntentStatusRequiresCapture,
	IntentStatusProcessing,
	IntentStatusSucceeded,
	IntentStatusCanceled,
}

// String implements fmt.Stringer.
func (i IntentStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known IntentStatus.
func (i IntentStatus) IsValid() bool {
	for _, candidate := range validIntentStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIntentStatus converts raw input into an IntentStatus.
func ParseIntentStatus(value string) (IntentStatus, error) {
	for _, candidate := range validIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid intent status %q", value)
}
