package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a rupiah string to a decimal.
//
// It accepts Indonesian notation: an optional "Rp" prefix, "." as the
// thousands separator and "," as the decimal separator. A leading minus is
// allowed because override values may be negative.
//
// Examples:
//
//	ParseAmount("50000")      -> 50000
//	ParseAmount("Rp 50.000")  -> 50000
//	ParseAmount("12.500,50")  -> 12500.5
//	ParseAmount("-40.000")    -> -40000
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(s[1:])
	}
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = strings.TrimSpace(s[2:])
	}
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ".", "")
	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	intPart := parts[0]
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	normalized := intPart
	if len(parts) == 2 {
		if parts[1] == "" {
			return decimal.Zero, ErrInvalidAmount
		}
		for _, r := range parts[1] {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
		normalized += "." + parts[1]
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// FormatRupiah renders an amount as "Rp 1.234.567" (or "-Rp 40.000").
// Fractions are rounded to whole rupiah for display only.
func FormatRupiah(d decimal.Decimal) string {
	rounded := d.Round(0)
	neg := rounded.IsNegative()
	digits := rounded.Abs().String()

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}

// Sum adds up a list of amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
