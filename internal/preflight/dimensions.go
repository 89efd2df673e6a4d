// Package preflight rejects or flags inputs that are too large to clean
// safely, before any row data is decoded.
package preflight

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dbsmedya/phoneclean/internal/config"
)

var (
	// ErrInputTooLarge is wrapped by every limit violation.
	ErrInputTooLarge = errors.New("input too large")
	// ErrEmptySheet is returned for a sheet without a declared extent.
	ErrEmptySheet = errors.New("sheet is empty or has no declared dimension")
)

// LimitError reports which ceiling an input exceeded.
type LimitError struct {
	Check   string
	Message string
	Limit   int64
	Actual  int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %s (%d > %d)", e.Check, e.Message, e.Actual, e.Limit)
}

func (e *LimitError) Unwrap() error {
	return ErrInputTooLarge
}

// Dimensions describes the extent of a sheet. Cells of zero means
// Rows*Columns.
type Dimensions struct {
	Rows    int
	Columns int
	Cells   int64
}

// CellCount returns the declared or derived number of cells.
func (d Dimensions) CellCount() int64 {
	if d.Cells > 0 {
		return d.Cells
	}
	return int64(d.Rows) * int64(d.Columns)
}

// Limits are the hard and soft ceilings applied to sheet dimensions.
type Limits struct {
	MaxRows    int
	MaxColumns int
	MaxCells   int64
	WarnRows   int
}

// LimitsFromConfig extracts the dimension limits from configuration.
func LimitsFromConfig(cfg config.LimitsConfig) Limits {
	return Limits{
		MaxRows:    cfg.MaxRows,
		MaxColumns: cfg.MaxColumns,
		MaxCells:   cfg.MaxCells,
		WarnRows:   cfg.WarnRows,
	}
}

// Check rejects dimensions above any hard limit and returns a warning
// for sheets above the soft row threshold.
func (l Limits) Check(d Dimensions) (string, error) {
	if l.MaxRows > 0 && d.Rows > l.MaxRows {
		return "", &LimitError{
			Check:   "rows",
			Message: "sheet has more rows than allowed",
			Limit:   int64(l.MaxRows),
			Actual:  int64(d.Rows),
		}
	}
	if l.MaxColumns > 0 && d.Columns > l.MaxColumns {
		return "", &LimitError{
			Check:   "columns",
			Message: "sheet has more columns than allowed",
			Limit:   int64(l.MaxColumns),
			Actual:  int64(d.Columns),
		}
	}
	if cells := d.CellCount(); l.MaxCells > 0 && cells > l.MaxCells {
		return "", &LimitError{
			Check:   "cells",
			Message: "sheet has more cells than allowed",
			Limit:   l.MaxCells,
			Actual:  cells,
		}
	}
	if l.WarnRows > 0 && d.Rows > l.WarnRows {
		return fmt.Sprintf("large sheet: %d rows, processing may take a while", d.Rows), nil
	}
	return "", nil
}

// CheckRows rejects a running row count above the ceiling. It is used
// while rows are streamed and the final count is not yet known.
func (l Limits) CheckRows(rows int) error {
	if l.MaxRows > 0 && rows > l.MaxRows {
		return &LimitError{
			Check:   "rows",
			Message: "input has more rows than allowed",
			Limit:   int64(l.MaxRows),
			Actual:  int64(rows),
		}
	}
	return nil
}

// CheckColumns rejects a row wider than the column ceiling.
func (l Limits) CheckColumns(cols int) error {
	if l.MaxColumns > 0 && cols > l.MaxColumns {
		return &LimitError{
			Check:   "columns",
			Message: "input has more columns than allowed",
			Limit:   int64(l.MaxColumns),
			Actual:  int64(cols),
		}
	}
	return nil
}

// CheckFileSize rejects inputs above max bytes.
func CheckFileSize(size, max int64) error {
	if max > 0 && size > max {
		return &LimitError{
			Check:   "file_size",
			Message: "file is larger than allowed",
			Limit:   max,
			Actual:  size,
		}
	}
	return nil
}

// ParseDimension converts a declared range such as "A1:D500" into
// dimensions. A single reference ("A1") is one cell. An empty reference
// is an empty sheet.
func ParseDimension(ref string) (Dimensions, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Dimensions{}, ErrEmptySheet
	}

	first, last, found := strings.Cut(ref, ":")
	if !found {
		last = first
	}

	c1, r1, err := coordinates(ref, first)
	if err != nil {
		return Dimensions{}, err
	}
	c2, r2, err := coordinates(ref, last)
	if err != nil {
		return Dimensions{}, err
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}

	return Dimensions{Rows: r2 - r1 + 1, Columns: c2 - c1 + 1}, nil
}

// coordinates resolves one corner of ref. A corner past the worksheet grid
// is a size violation, not a malformed reference.
func coordinates(ref, cell string) (int, int, error) {
	col, row, err := excelize.CellNameToCoordinates(cell)
	switch {
	case errors.Is(err, excelize.ErrMaxRows), errors.Is(err, excelize.ErrColumnNumber):
		return 0, 0, fmt.Errorf("%w: dimension %q is beyond the worksheet grid", ErrInputTooLarge, ref)
	case err != nil:
		return 0, 0, fmt.Errorf("invalid dimension %q: %w", ref, err)
	}
	return col, row, nil
}
