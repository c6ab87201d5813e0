// Package pricing computes effective prices and cart totals under
// category markup. All arithmetic is decimal; the only rounding step is
// applied to the final total.
package pricing

import "github.com/shopspring/decimal"

// CurrencyPlaces is the number of fractional digits kept on stored totals.
const CurrencyPlaces = 2

// Line is one cart line as seen by the pricing engine. A zero Markup means
// the product has no category.
type Line struct {
	Price    decimal.Decimal
	Markup   decimal.Decimal
	Quantity int
}

// EffectiveUnitPrice returns price + price*markup/100.
func EffectiveUnitPrice(price, markupPercent decimal.Decimal) decimal.Decimal {
	return price.Add(price.Mul(markupPercent).Shift(-2))
}

// LineSubtotal is exact; it is never rounded on its own.
func LineSubtotal(l Line) decimal.Decimal {
	return EffectiveUnitPrice(l.Price, l.Markup).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartTotal sums exact line subtotals and rounds once, half away from zero.
func CartTotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineSubtotal(l))
	}
	return sum.Round(CurrencyPlaces)
}

// GatewayAmount converts a total to the whole-unit integer the gateway expects.
func GatewayAmount(total decimal.Decimal) int64 {
	return total.Round(0).IntPart()
}
