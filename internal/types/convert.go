package types

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// FromValue converts a Go value into a Cell.
// Supports nil, string, bool, time.Time, decimal.Decimal, all integer types,
// float32 and float64. Anything else becomes an empty cell.
func FromValue(v interface{}) Cell {
	switch i := v.(type) {
	case nil:
		return EmptyCell()
	case Cell:
		return i
	case string:
		if i == "" {
			return EmptyCell()
		}
		return NewText(i)
	case bool:
		return NewBool(i)
	case time.Time:
		return NewDate(i)
	case decimal.Decimal:
		return NewNumber(i)
	case int64:
		return NewNumber(decimal.NewFromInt(i))
	case int:
		return NewNumber(decimal.NewFromInt(int64(i)))
	case int32:
		return NewNumber(decimal.NewFromInt32(i))
	case int16:
		return NewNumber(decimal.NewFromInt(int64(i)))
	case int8:
		return NewNumber(decimal.NewFromInt(int64(i)))
	case uint:
		return NewNumber(decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(i)), 0))
	case uint64:
		return NewNumber(decimal.NewFromBigInt(new(big.Int).SetUint64(i), 0))
	case uint32:
		return NewNumber(decimal.NewFromInt(int64(i)))
	case uint16:
		return NewNumber(decimal.NewFromInt(int64(i)))
	case uint8:
		return NewNumber(decimal.NewFromInt(int64(i)))
	case float64:
		return NewNumber(decimal.NewFromFloat(i))
	case float32:
		return NewNumber(decimal.NewFromFloat32(i))
	default:
		return EmptyCell()
	}
}

// Value converts a Cell back into a plain Go value suitable for a
// spreadsheet writer. Text stays text so long digit strings are not
// reinterpreted as floating point numbers.
func (c Cell) Value() interface{} {
	switch c.kind {
	case KindText:
		return c.text
	case KindNumber:
		if c.num.IsInteger() && c.num.Abs().LessThan(maxExactFloat) {
			return c.num.IntPart()
		}
		return c.num.String()
	case KindBool:
		return c.b
	case KindDate:
		return c.t
	default:
		return nil
	}
}

// maxExactFloat is 2^53, the largest integer a spreadsheet stores exactly.
var maxExactFloat = decimal.NewFromInt(1 << 53)

// RecordOf builds a Record from plain Go values.
func RecordOf(values ...interface{}) Record {
	rec := make(Record, len(values))
	for i, v := range values {
		rec[i] = FromValue(v)
	}
	return rec
}

// RecordFromStrings builds a Record of text cells. Empty strings become
// empty cells.
func RecordFromStrings(fields []string) Record {
	rec := make(Record, len(fields))
	for i, f := range fields {
		if f == "" {
			continue
		}
		rec[i] = NewText(f)
	}
	return rec
}
