package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts a display price like "45,000" or "45000.50" into a
// decimal amount. Commas and spaces are treated as digit grouping.
// Malformed input yields zero rather than an error so cart math never
// fails on a bad snapshot.
func Parse(display string) decimal.Decimal {
	cleaned := strings.TrimSpace(display)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// ParseStrict is Parse for trusted-input paths where a malformed price is a
// caller error, not something to swallow.
func ParseStrict(display string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(display)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	return decimal.NewFromString(cleaned)
}

// Format renders an amount with comma digit grouping for human-facing
// text such as the order notification ("45,000").
func Format(amount decimal.Decimal) string {
	text := amount.String()
	negative := strings.HasPrefix(text, "-")
	if negative {
		text = text[1:]
	}

	intPart := text
	fracPart := ""
	if idx := strings.IndexByte(text, '.'); idx >= 0 {
		intPart = text[:idx]
		fracPart = text[idx:]
	}

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	result := b.String() + fracPart
	if negative {
		result = "-" + result
	}
	return result
}
