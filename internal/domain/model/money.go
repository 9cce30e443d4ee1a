package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnits is the exponent of the minor currency unit (paise, cents).
const minorUnits = -2

// MajorAmount converts minor units to a decimal in major units.
func MajorAmount(minor int64) decimal.Decimal {
	return decimal.New(minor, minorUnits)
}

// FormatMoney renders minor units for humans, e.g. "INR 1,250.00".
func FormatMoney(minor int64, currency string) string {
	s := MajorAmount(minor).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	if currency == "" {
		return out
	}
	return strings.ToUpper(currency) + " " + out
}
