package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var symbolByCurrency = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// FromCents converts an integer cent amount to a decimal value.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// ToCents converts a decimal value to integer cents, rounding half up.
func ToCents(value decimal.Decimal) int64 {
	return value.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Sum adds the provided decimal values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Format renders a decimal amount as a plain-text currency string, e.g. "$12.50".
// Currencies without a known symbol fall back to the ISO code prefix.
func Format(value decimal.Decimal, currencyCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	fixed := value.StringFixed(2)
	if symbol, ok := symbolByCurrency[code]; ok {
		return symbol + fixed
	}
	if code == "" {
		return fixed
	}
	return code + " " + fixed
}

// FormatCents renders an integer cent amount as a currency string.
func FormatCents(cents int64, currencyCode string) string {
	return Format(FromCents(cents), currencyCode)
}
