package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dbsmedya/phoneclean/internal/types"
)

// SheetName is the name of the single output worksheet.
const SheetName = "Cleaned"

// EncodeXLSX writes the shape as a single-sheet workbook using the
// streaming writer.
func EncodeXLSX(s Shape) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	width := len(s.Header)
	for _, r := range s.Rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		width = 1
	}
	lastCol, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return nil, err
	}
	// The stream writer emits the dimension when it is created.
	ref := fmt.Sprintf("A1:%s%d", lastCol, len(s.Rows)+1)
	if err := f.SetSheetDimension(SheetName, ref); err != nil {
		return nil, fmt.Errorf("failed to set dimension: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(s.Header))
	for i, h := range s.Header {
		header[i] = Sanitize(h)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, xlsxValues(rec)); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func xlsxValues(rec types.Record) []interface{} {
	values := make([]interface{}, len(rec))
	for i, c := range rec {
		switch c.Kind() {
		case types.KindText:
			values[i] = Sanitize(c.String())
		case types.KindDate:
			values[i] = c.String()
		default:
			values[i] = c.Value()
		}
	}
	return values
}
