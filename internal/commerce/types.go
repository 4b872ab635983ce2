package commerce

import (
	"time"

	"github.com/davidebenetti/artpay-checkout/pkg/enums"
)

// Order is the commerce backend's record of a purchase. The checkout core
// reads it and PATCH-mutates specific fields; it never creates one.
type Order struct {
	ID                 int64               `json:"id"`
	OrderKey           string              `json:"order_key"`
	Status             enums.OrderStatus   `json:"status"`
	Total              string              `json:"total"`
	Currency           string              `json:"currency"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	PaymentMethodTitle string              `json:"payment_method_title"`
	CustomerNote       string              `json:"customer_note"`
	LoanState          enums.LoanState     `json:"loan_state,omitempty"`
	FeeLines           []FeeLine           `json:"fee_lines"`
	CouponLines        []CouponLine        `json:"coupon_lines"`
	ShippingLines      []ShippingLine      `json:"shipping_lines"`
	Billing            Address             `json:"billing"`
	Shipping           Address             `json:"shipping"`
	DateCreated        time.Time           `json:"date_created"`
	DateModified       time.Time           `json:"date_modified"`
	DateCompleted      *time.Time          `json:"date_completed,omitempty"`
}

// HasFeeLines reports whether the backend already attached a markup line,
// which changes the inverse formula for the base subtotal.
func (o *Order) HasFeeLines() bool {
	return o != nil && len(o.FeeLines) > 0
}

// LoanProgress returns the structured loan state, recovering it from the
// legacy customer-note convention when the tag is absent.
func (o *Order) LoanProgress() enums.LoanState {
	if o == nil {
		return enums.LoanStateNotRequested
	}
	if o.LoanState.IsValid() {
		return o.LoanState
	}
	return enums.LoanStateFromNote(o.CustomerNote)
}

// FeeLine is a named markup amount attached to an order.
type FeeLine struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Total string `json:"total"`
}

// CouponLine is a discount applied upstream.
type CouponLine struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Discount string `json:"discount"`
}

// ShippingLine is a shipping charge applied upstream.
type ShippingLine struct {
	ID          int64  `json:"id"`
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

// Address is the billing or shipping record nested in an order.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// OrderPatch carries the partial fields the core may mutate. Nil fields are
// omitted from the PATCH body, so every update is an idempotent partial
// write keyed by order id.
type OrderPatch struct {
	Status             *enums.OrderStatus   `json:"status,omitempty"`
	PaymentMethod      *enums.PaymentMethod `json:"payment_method,omitempty"`
	PaymentMethodTitle *string              `json:"payment_method_title,omitempty"`
	CustomerNote       *string              `json:"customer_note,omitempty"`
	LoanState          *enums.LoanState     `json:"loan_state,omitempty"`
	DateCompleted      *time.Time           `json:"date_completed,omitempty"`
	Billing            *Address             `json:"billing,omitempty"`
	Shipping           *Address             `json:"shipping,omitempty"`
	ShippingLines      []ShippingLine       `json:"shipping_lines,omitempty"`
	CouponLines        []CouponLine         `json:"coupon_lines,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p OrderPatch) IsEmpty() bool {
	return p.Status == nil &&
		p.PaymentMethod == nil &&
		p.PaymentMethodTitle == nil &&
		p.CustomerNote == nil &&
		p.LoanState == nil &&
		p.DateCompleted == nil &&
		p.Billing == nil &&
		p.Shipping == nil &&
		len(p.ShippingLines) == 0 &&
		len(p.CouponLines) == 0
}

// ListParams filters the order list endpoint.
type ListParams struct {
	Status   enums.OrderStatus
	Customer string
}
