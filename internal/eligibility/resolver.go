package eligibility

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	"github.com/davidebenetti/artpay-checkout/internal/fees"
	"github.com/davidebenetti/artpay-checkout/pkg/config"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
)

// Resolver decides which payment methods an order may legally offer. It is a
// pure function of the order and checkout mode: no caching, no dependence on
// UI selection state. Callers re-resolve whenever totals change (coupons).
type Resolver struct {
	calc *fees.Calculator

	klarnaMax    decimal.Decimal
	santanderMin decimal.Decimal
	santanderMax decimal.Decimal
	heyLightMin  decimal.Decimal
	heyLightMax  decimal.Decimal

	// Auction boundary in minor units; amounts above it switch the lending
	// partner from Klarna to Santander, redeem mode included.
	auctionSwitchMinor decimal.Decimal
}

// NewResolver builds a resolver from the configured eligibility windows.
func NewResolver(cfg config.MethodsConfig, calc *fees.Calculator) (*Resolver, error) {
	if calc == nil {
		return nil, fmt.Errorf("fee calculator required")
	}

	parse := func(name, value string) (decimal.Decimal, error) {
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing %s: %w", name, err)
		}
		return parsed, nil
	}

	klarnaMax, err := parse("klarna max", cfg.KlarnaMax)
	if err != nil {
		return nil, err
	}
	santanderMin, err := parse("santander min", cfg.SantanderMin)
	if err != nil {
		return nil, err
	}
	santanderMax, err := parse("santander max", cfg.SantanderMax)
	if err != nil {
		return nil, err
	}
	heyLightMin, err := parse("heylight min", cfg.HeyLightMin)
	if err != nil {
		return nil, err
	}
	heyLightMax, err := parse("heylight max", cfg.HeyLightMax)
	if err != nil {
		return nil, err
	}
	auctionSwitch, err := parse("auction switch", cfg.AuctionSwitch)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		calc:               calc,
		klarnaMax:          klarnaMax,
		santanderMin:       santanderMin,
		santanderMax:       santanderMax,
		heyLightMin:        heyLightMin,
		heyLightMax:        heyLightMax,
		auctionSwitchMinor: auctionSwitch,
	}, nil
}

// Resolve returns the set of methods the order may offer, in stable order.
func (r *Resolver) Resolve(order *commerce.Order, mode enums.CheckoutMode) []enums.PaymentMethod {
	methods := make([]enums.PaymentMethod, 0, 5)
	// Card and bank transfer through the processor carry no amount bound.
	methods = append(methods, enums.MethodStripe, enums.MethodTransfer)

	if mode.IsAuction() {
		if r.auctionLender(order) == enums.MethodKlarna {
			methods = append(methods, enums.MethodKlarna)
		} else {
			methods = append(methods, enums.MethodSantander)
		}
		return methods
	}

	total := parseTotal(order)
	if r.calc.FinancedTotal(order).LessThanOrEqual(r.klarnaMax) && total.IsPositive() {
		methods = append(methods, enums.MethodKlarna)
	}
	if total.GreaterThanOrEqual(r.santanderMin) && total.LessThan(r.santanderMax) {
		methods = append(methods, enums.MethodSantander)
	}
	if total.GreaterThanOrEqual(r.heyLightMin) && total.LessThanOrEqual(r.heyLightMax) {
		methods = append(methods, enums.MethodHeyLight)
	}
	return methods
}

// Eligible reports whether one specific method is allowed for the order.
func (r *Resolver) Eligible(order *commerce.Order, mode enums.CheckoutMode, method enums.PaymentMethod) bool {
	for _, candidate := range r.Resolve(order, mode) {
		if candidate == method {
			return true
		}
	}
	return false
}

// auctionLender picks the lending partner for auction settlements. Auction
// totals are stored in minor units; the fee-adjusted amount is compared
// against the switch boundary.
func (r *Resolver) auctionLender(order *commerce.Order) enums.PaymentMethod {
	amountMinor := parseTotal(order)
	adjusted := amountMinor.Mul(r.calc.FinancingFactor())
	if adjusted.GreaterThan(r.auctionSwitchMinor) {
		return enums.MethodSantander
	}
	return enums.MethodKlarna
}

func parseTotal(order *commerce.Order) decimal.Decimal {
	if order == nil {
		return decimal.Zero
	}
	total, err := decimal.NewFromString(order.Total)
	if err != nil {
		return decimal.Zero
	}
	return total
}
