// Package phone turns raw cell values into canonical mobile numbers.
package phone

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dbsmedya/phoneclean/internal/types"
)

const (
	// maxFractionDigits bounds the expansion of non-integral numbers.
	maxFractionDigits = 20
	// maxExponent bounds the expansion of very large numbers; nothing
	// that long can hold a phone number.
	maxExponent = 32
)

// scientificPattern matches text a spreadsheet rendered in exponent form,
// e.g. 9.19818202888E+11.
var scientificPattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?[eE][+-]?\d+$`)

// Normalize maps a cell to the digits it carries. Numbers are expanded to
// plain decimal notation first, and text in scientific notation is parsed
// and re-expanded so no digits are lost to the exponent.
func Normalize(c types.Cell) string {
	return StripNonDigits(Expand(c))
}

// Expand renders a cell as text with numeric values in plain decimal
// notation. Non-digit characters are kept.
func Expand(c types.Cell) string {
	switch c.Kind() {
	case types.KindEmpty:
		return ""
	case types.KindNumber:
		d, _ := c.Decimal()
		return plainDecimal(d)
	case types.KindText:
		s := strings.TrimSpace(c.String())
		if scientificPattern.MatchString(s) {
			if d, err := decimal.NewFromString(s); err == nil && d.Exponent() <= maxExponent {
				return plainDecimal(d)
			}
		}
		return s
	default:
		return c.String()
	}
}

func plainDecimal(d decimal.Decimal) string {
	if d.Exponent() > maxExponent {
		return ""
	}
	if d.IsInteger() {
		return d.String()
	}
	return d.Truncate(maxFractionDigits).String()
}

// StripNonDigits removes every character that is not an ASCII digit.
func StripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
