package phone

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/phoneclean/internal/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		cell     types.Cell
		expected string
	}{
		{"empty", types.EmptyCell(), ""},
		{"integer number", types.NewNumber(decimal.NewFromInt(919818202888)), "919818202888"},
		{"float number", types.FromValue(9.19818202888e11), "919818202888"},
		{"fractional number", types.NewNumber(decimal.RequireFromString("9818202888.5")), "98182028885"},
		{"scientific text", types.NewText("9.19818202888E+11"), "919818202888"},
		{"scientific lower", types.NewText(" 9.818202888e9 "), "9818202888"},
		{"signed scientific", types.NewText("+9.818202888E+09"), "9818202888"},
		{"formatted text", types.NewText("+91 98182-02888"), "919818202888"},
		{"text with letters", types.NewText("Call 98182 02888 now"), "9818202888"},
		{"not scientific", types.NewText("E+11"), "11"},
		{"bool", types.NewBool(true), ""},
		{"date", types.NewDate(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), "20240102"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.cell))
		})
	}
}

func TestExpandKeepsLongFractionsBounded(t *testing.T) {
	d := decimal.RequireFromString("1.123456789012345678901234567")
	got := Expand(types.NewNumber(d))
	assert.Equal(t, "1.1234567890123456789", got)
}

func TestStripNonDigits(t *testing.T) {
	assert.Equal(t, "919818202888", StripNonDigits("(+91) 98182/02888"))
	assert.Equal(t, "", StripNonDigits("n/a"))
	assert.Equal(t, "", StripNonDigits("١٢٣"))
}
