package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	"github.com/davidebenetti/artpay-checkout/pkg/config"
)

// Calculator backs out the base subtotal from an order's tax-inclusive total
// and derives per-method markups. All intermediate math stays at full
// precision; rounding happens only at render time.
type Calculator struct {
	platformRate  decimal.Decimal
	financingRate decimal.Decimal
	combinedRate  decimal.Decimal

	platformDivisor decimal.Decimal
	financingFactor decimal.Decimal
	combinedDivisor decimal.Decimal
}

// NewCalculator builds a calculator from the configured markup rates.
func NewCalculator(cfg config.FeesConfig) (*Calculator, error) {
	platform, err := decimal.NewFromString(cfg.PlatformRate)
	if err != nil {
		return nil, fmt.Errorf("parsing platform rate: %w", err)
	}
	financing, err := decimal.NewFromString(cfg.FinancingRate)
	if err != nil {
		return nil, fmt.Errorf("parsing financing rate: %w", err)
	}
	combined, err := decimal.NewFromString(cfg.CombinedRate)
	if err != nil {
		return nil, fmt.Errorf("parsing combined rate: %w", err)
	}

	one := decimal.NewFromInt(1)
	return &Calculator{
		platformRate:    platform,
		financingRate:   financing,
		combinedRate:    combined,
		platformDivisor: one.Add(platform),
		financingFactor: one.Add(financing),
		combinedDivisor: one.Add(combined),
	}, nil
}

// ReverseSubtotal backs the base subtotal out of the stored total. The
// presence of a fee line changes which inverse formula applies: without fee
// lines the total carries the flat platform markup, with them the backend
// already applied the larger combined markup.
func (c *Calculator) ReverseSubtotal(order *commerce.Order) decimal.Decimal {
	total := parseTotal(order)
	if total.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if order.HasFeeLines() {
		return total.Div(c.combinedDivisor)
	}
	return total.Div(c.platformDivisor)
}

// ArtPayFee is the platform markup on the base subtotal.
func (c *Calculator) ArtPayFee(order *commerce.Order) decimal.Decimal {
	subtotal := c.ReverseSubtotal(order)
	return subtotal.Mul(c.platformDivisor).Sub(subtotal)
}

// KlarnaFee is the financing partner's markup on the base subtotal.
func (c *Calculator) KlarnaFee(order *commerce.Order) decimal.Decimal {
	subtotal := c.ReverseSubtotal(order)
	return subtotal.Mul(c.financingFactor).Sub(subtotal)
}

// TotalFee combines platform and financing markups; it applies only when a
// financing partner is selected on top of the platform fee.
func (c *Calculator) TotalFee(order *commerce.Order) decimal.Decimal {
	return c.ArtPayFee(order).Add(c.KlarnaFee(order))
}

// FinancedTotal is the subtotal with the financing markup applied, the
// amount eligibility windows compare against for Klarna.
func (c *Calculator) FinancedTotal(order *commerce.Order) decimal.Decimal {
	return c.ReverseSubtotal(order).Mul(c.financingFactor)
}

// FinancingFactor exposes the 1+rate multiplier for auction boundary checks.
func (c *Calculator) FinancingFactor() decimal.Decimal {
	return c.financingFactor
}

// RenderAmount formats a full-precision amount for display, the only place
// rounding is allowed.
func RenderAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
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
