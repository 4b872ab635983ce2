package enums

import "fmt"

// CheckoutMode distinguishes the standard gallery checkout from the auction
// flows, whose amounts arrive in minor units and carry their own
// lending-partner boundary.
type CheckoutMode string

const (
	ModeStandard CheckoutMode = "standard"
	ModeAuction  CheckoutMode = "auction"
	ModeRedeem   CheckoutMode = "redeem"
)

var validCheckoutModes = []CheckoutMode{
	ModeStandard,
	ModeAuction,
	ModeRedeem,
}

// String implements fmt.Stringer.
func (c CheckoutMode) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutMode.
func (c CheckoutMode) IsValid() bool {
	for _, candidate := range validCheckoutModes {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsAuction covers both the initial auction settlement and the redeem
// (balance due) variant.
func (c CheckoutMode) IsAuction() bool {
	return c == ModeAuction || c == ModeRedeem
}

// ParseCheckoutMode converts raw input into a CheckoutMode.
func ParseCheckoutMode(value string) (CheckoutMode, error) {
	if value == "" {
		return ModeStandard, nil
	}
	for _, candidate := range validCheckoutModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout mode %q", value)
}
