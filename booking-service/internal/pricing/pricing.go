// Package pricing computes reservation totals. All money is shopspring/decimal;
// adjustment amounts are rounded to two places as they are produced.
package pricing

import (
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Base is unitPrice x duration x quantity for per-night and per-hour units, and
// unitPrice plus the add-ons for per-event units.
func Base(unit *domain.BookableUnit, iv interval.Interval, quantity int, addOns []domain.AddOn) decimal.Decimal {
	if unit.Granularity == domain.PerEvent {
		base := unit.UnitPrice
		for _, a := range addOns {
			base = base.Add(a.Price.Mul(decimal.NewFromInt(int64(a.Quantity))))
		}
		return base
	}
	units := interval.Duration(iv, unit.BillingUnit())
	return unit.UnitPrice.Mul(decimal.NewFromInt(int64(units))).Mul(decimal.NewFromInt(int64(quantity)))
}

// Amount is what a single adjustment contributes given the running subtotal.
func Amount(adj domain.Adjustment, subtotal decimal.Decimal) decimal.Decimal {
	if adj.Mode == domain.ModePercentage {
		return subtotal.Mul(adj.Value).Div(hundred).Round(moneyPlaces)
	}
	return adj.Value.Round(moneyPlaces)
}

// Price runs the unit's adjustment pipeline over the base amount. A promo code
// resolves to a discount placed before the unit's own adjustments.
func (c *Calculator) Price(unit *domain.BookableUnit, iv interval.Interval, quantity int, addOns []domain.AddOn, promoCode string) (domain.PriceBreakdown, error) {
	if quantity <= 0 {
		return domain.PriceBreakdown{}, domain.InvalidRequestf("quantity must be greater than 0")
	}

	steps := make([]domain.Adjustment, 0, len(unit.Adjustments)+1)
	if promoCode != "" {
		promo, ok := unit.Promo(promoCode)
		if !ok {
			return domain.PriceBreakdown{}, domain.InvalidRequestf("unknown promo code %q", promoCode)
		}
		steps = append(steps, promo)
	}
	steps = append(steps, unit.Adjustments...)

	base := Base(unit, iv, quantity, addOns)
	out := domain.PriceBreakdown{
		Currency:  unit.Currency,
		Base:      base,
		Taxes:     decimal.Zero,
		Fees:      decimal.Zero,
		Discounts: decimal.Zero,
	}

	subtotal := base
	for _, adj := range steps {
		amount := Amount(adj, subtotal)
		switch adj.Category {
		case domain.CategoryTax:
			out.Taxes = out.Taxes.Add(amount)
			subtotal = subtotal.Add(amount)
		case domain.CategoryFee:
			out.Fees = out.Fees.Add(amount)
			subtotal = subtotal.Add(amount)
		case domain.CategoryDiscount:
			out.Discounts = out.Discounts.Add(amount)
			subtotal = floor(subtotal.Sub(amount))
		default:
			return domain.PriceBreakdown{}, domain.InvalidRequestf("adjustment %q has unknown category %q", adj.Name, adj.Category)
		}
		out.Lines = append(out.Lines, domain.AdjustmentLine{Name: adj.Name, Category: adj.Category, Amount: amount})
	}

	out.Total = floor(base.Add(out.Taxes).Add(out.Fees).Sub(out.Discounts))
	return out, nil
}

func floor(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
