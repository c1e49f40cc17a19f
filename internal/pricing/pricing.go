// Package pricing computes order quotes from a service's unit price and the
// chosen print options.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/tiskarna/internal/model"
)

// Input is everything a quote depends on.
type Input struct {
	BasePrice  float64
	Quantity   int
	PaperType  string
	PrintColor string
	PrintSides string
}

// Quote is the computed price. Base already includes the paper, color and
// sides multipliers; Total is Base less the volume discount.
type Quote struct {
	Total          decimal.Decimal
	Base           decimal.Decimal
	DiscountRate   decimal.Decimal
	DiscountAmount decimal.Decimal
}

var (
	premiumPaper = decimal.RequireFromString("1.5")
	glossyPaper  = decimal.RequireFromString("1.2")
	blackWhite   = decimal.RequireFromString("0.8")
	doubleSided  = decimal.RequireFromString("1.5")
)

// volumeTiers are checked in order; the first matching minimum wins.
var volumeTiers = []struct {
	min  int
	rate decimal.Decimal
}{
	{500, decimal.RequireFromString("0.15")},
	{200, decimal.RequireFromString("0.10")},
	{50, decimal.RequireFromString("0.05")},
}

// Calculate returns the quote for in. Negative prices and quantities are
// treated as zero.
func Calculate(in Input) Quote {
	price := decimal.NewFromFloat(in.BasePrice)
	if price.IsNegative() {
		price = decimal.Zero
	}
	qty := in.Quantity
	if qty < 0 {
		qty = 0
	}

	base := price.Mul(decimal.NewFromInt(int64(qty)))
	base = base.Mul(PaperMultiplier(in.PaperType))
	if in.PrintColor == model.ColorBW {
		base = base.Mul(blackWhite)
	}
	if in.PrintSides == model.SidesDouble {
		base = base.Mul(doubleSided)
	}

	rate := DiscountRate(qty)
	discount := base.Mul(rate)

	return Quote{
		Total:          base.Sub(discount),
		Base:           base,
		DiscountRate:   rate,
		DiscountAmount: discount,
	}
}

// PaperMultiplier returns the surcharge for a paper stock name.
func PaperMultiplier(paperType string) decimal.Decimal {
	name := strings.ToLower(paperType)
	switch {
	case strings.Contains(name, "premium"), strings.Contains(name, "cardstock"):
		return premiumPaper
	case strings.Contains(name, "glossy"):
		return glossyPaper
	default:
		return decimal.NewFromInt(1)
	}
}

// DiscountRate returns the volume discount for an order size.
func DiscountRate(quantity int) decimal.Decimal {
	for _, tier := range volumeTiers {
		if quantity >= tier.min {
			return tier.rate
		}
	}
	return decimal.Zero
}

// Amount returns Total as a float64 for storage.
func (q Quote) Amount() float64 {
	return q.Total.InexactFloat64()
}
