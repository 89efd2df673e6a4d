// Package types contains the cell and table model shared across packages.
package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies which variant a Cell holds.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindBool
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return "empty"
	}
}

// DateLayout is used when a date cell is rendered as text.
const DateLayout = "2006-01-02"

// Cell is a single spreadsheet value. Only the field matching Kind is set.
// The zero value is an empty cell.
type Cell struct {
	kind Kind
	text string
	num  decimal.Decimal
	b    bool
	t    time.Time
}

// EmptyCell returns the empty cell.
func EmptyCell() Cell { return Cell{} }

// NewText returns a text cell.
func NewText(s string) Cell { return Cell{kind: KindText, text: s} }

// NewNumber returns a numeric cell holding an exact decimal.
func NewNumber(d decimal.Decimal) Cell { return Cell{kind: KindNumber, num: d} }

// NewBool returns a boolean cell.
func NewBool(b bool) Cell { return Cell{kind: KindBool, b: b} }

// NewDate returns a date cell.
func NewDate(t time.Time) Cell { return Cell{kind: KindDate, t: t} }

// Kind reports the variant held by the cell.
func (c Cell) Kind() Kind { return c.kind }

// IsBlank reports whether the cell is empty or holds only whitespace text.
func (c Cell) IsBlank() bool {
	switch c.kind {
	case KindEmpty:
		return true
	case KindText:
		return strings.TrimSpace(c.text) == ""
	default:
		return false
	}
}

// Decimal returns the numeric value of a number cell.
func (c Cell) Decimal() (decimal.Decimal, bool) {
	if c.kind != KindNumber {
		return decimal.Zero, false
	}
	return c.num, true
}

// Time returns the value of a date cell.
func (c Cell) Time() (time.Time, bool) {
	if c.kind != KindDate {
		return time.Time{}, false
	}
	return c.t, true
}

// String renders the cell as display text. Numbers print in plain decimal
// notation without grouping.
func (c Cell) String() string {
	switch c.kind {
	case KindText:
		return c.text
	case KindNumber:
		return c.num.String()
	case KindBool:
		if c.b {
			return "TRUE"
		}
		return "FALSE"
	case KindDate:
		return c.t.Format(DateLayout)
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same variant and value.
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindNumber:
		return c.num.Equal(o.num)
	case KindDate:
		return c.t.Equal(o.t)
	default:
		return c.text == o.text && c.b == o.b
	}
}
