package render

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// FormatNumber renders n with K/M/B suffixes at the given precision.
// Values below one get four extra places, capped at eight.
func FormatNumber(n decimal.Decimal, places int32) string {
	abs := n.Abs()
	switch {
	case abs.GreaterThanOrEqual(billion):
		return n.Div(billion).StringFixed(places) + "B"
	case abs.GreaterThanOrEqual(million):
		return n.Div(million).StringFixed(places) + "M"
	case abs.GreaterThanOrEqual(thousand):
		return n.Div(thousand).StringFixed(places) + "K"
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return groupThousands(n.StringFixed(places))
	default:
		small := places + 4
		if small > 8 {
			small = 8
		}
		return n.StringFixed(small)
	}
}

// groupThousands inserts commas into the integer part of a fixed-point string.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return sign + s
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteString("." + frac)
	}
	return sign + b.String()
}
