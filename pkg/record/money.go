package record

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places kept on monetary values.
const MoneyPlaces = 2

// Round rounds a monetary value to two places, half to even.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyPlaces)
}

// Convert applies a currency rate and rounds the result.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(rate))
}

// Share divides total evenly over n parts, applies the currency rate and
// rounds the part. The n rounded parts need not add up to total.
func Share(total decimal.Decimal, n int, rate decimal.Decimal) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return Convert(total.Div(decimal.NewFromInt(int64(n))), rate)
}
