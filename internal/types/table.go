package types

import (
	"errors"
	"fmt"
)

// NoHeader marks a table whose header row has not been chosen.
const NoHeader = -1

var (
	// ErrHeaderOutOfRange is returned when the header index is not a row of the table.
	ErrHeaderOutOfRange = errors.New("header row out of range")
	// ErrColumnOutOfRange is returned when a selected column is outside the header.
	ErrColumnOutOfRange = errors.New("selected column out of range")
)

// Record is an ordered, index-addressable row of cells.
type Record []Cell

// Get returns the cell at i, or an empty cell when i is past the end.
func (r Record) Get(i int) Cell {
	if i < 0 || i >= len(r) {
		return EmptyCell()
	}
	return r[i]
}

// Set stores c at i, growing the record with empty cells as needed.
func (r *Record) Set(i int, c Cell) {
	for len(*r) <= i {
		*r = append(*r, EmptyCell())
	}
	(*r)[i] = c
}

// Clone returns a copy that can be mutated independently.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// Strings renders every cell as text.
func (r Record) Strings() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.String()
	}
	return out
}

// IsBlank reports whether every cell in the record is blank.
func (r Record) IsBlank() bool {
	for _, c := range r {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// Table is a fully materialized sheet with a header row and the columns
// selected for cleaning.
type Table struct {
	Records   []Record
	HeaderRow int
	Selected  []int
}

// NewTable returns a table with no header chosen and no columns selected.
func NewTable(records []Record) *Table {
	return &Table{Records: records, HeaderRow: NoHeader}
}

// Len returns the number of records, header included.
func (t *Table) Len() int {
	return len(t.Records)
}

// Header returns the header record, or nil when no header is set.
func (t *Table) Header() Record {
	if t.HeaderRow < 0 || t.HeaderRow >= len(t.Records) {
		return nil
	}
	return t.Records[t.HeaderRow]
}

// DataRows returns the records strictly after the header row.
func (t *Table) DataRows() []Record {
	if t.HeaderRow < 0 || t.HeaderRow >= len(t.Records) {
		return nil
	}
	return t.Records[t.HeaderRow+1:]
}

// Width returns the widest record length.
func (t *Table) Width() int {
	w := 0
	for _, r := range t.Records {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Validate checks that the header index is a row of the table and that
// every selected column falls inside the header.
func (t *Table) Validate() error {
	if t.HeaderRow == NoHeader {
		return nil
	}
	if t.HeaderRow < 0 || t.HeaderRow >= len(t.Records) {
		return fmt.Errorf("%w: %d (table has %d rows)", ErrHeaderOutOfRange, t.HeaderRow, len(t.Records))
	}
	width := len(t.Records[t.HeaderRow])
	for _, col := range t.Selected {
		if col < 0 || col >= width {
			return fmt.Errorf("%w: %d (header has %d columns)", ErrColumnOutOfRange, col, width)
		}
	}
	return nil
}
