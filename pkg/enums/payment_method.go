package enums

import "fmt"

// PaymentMethod identifies how the buyer settles an order. MethodNone is the
// neutral sentinel the commerce backend stores before a method is chosen.
type PaymentMethod string

const (
	MethodNone      PaymentMethod = ""
	MethodStripe    PaymentMethod = "stripe"
	MethodKlarna    PaymentMethod = "klarna"
	MethodSantander PaymentMethod = "santander"
	MethodHeyLight  PaymentMethod = "heylight"
	MethodTransfer  PaymentMethod = "bank_transfer"
)

var validPaymentMethods = []PaymentMethod{
	MethodStripe,
	MethodKlarna,
	MethodSantander,
	MethodHeyLight,
	MethodTransfer,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a selectable PaymentMethod. The
// neutral sentinel is deliberately not selectable.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsFinancing reports whether the method routes through a lending partner.
func (p PaymentMethod) IsFinancing() bool {
	switch p {
	case MethodKlarna, MethodSantander, MethodHeyLight:
		return true
	default:
		return false
	}
}

// Title returns the display title the commerce backend stores alongside the
// method key.
func (p PaymentMethod) Title() string {
	switch p {
	case MethodStripe:
		return "Card / Bank transfer (Stripe)"
	case MethodKlarna:
		return "Klarna - 3 installments"
	case MethodSantander:
		return "Santander consumer loan"
	case MethodHeyLight:
		return "HeyLight installments"
	case MethodTransfer:
		return "Direct bank transfer"
	default:
		return ""
	}
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
