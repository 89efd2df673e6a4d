package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dbsmedya/phoneclean/internal/logger"
	"github.com/dbsmedya/phoneclean/internal/preflight"
	"github.com/dbsmedya/phoneclean/internal/types"
)

// ctxCheckEvery is how many rows are decoded between cancellation checks.
const ctxCheckEvery = 1000

// Decoder reads the first worksheet of a container into a Table.
type Decoder struct {
	limits preflight.Limits
	logger *logger.Logger
}

// NewDecoder creates a decoder that enforces limits while reading rows.
func NewDecoder(limits preflight.Limits, log *logger.Logger) *Decoder {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Decoder{limits: limits, logger: log}
}

// DecodeResult is a decoded table plus whether a repair was needed.
type DecodeResult struct {
	Table    *types.Table
	Sheet    string
	Repaired bool
}

// Decode reads data into a Table. If the archive is damaged it is
// repacked and decoded once more; a second failure is final.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*DecodeResult, error) {
	res, err := d.decode(ctx, data)
	if err == nil {
		return res, nil
	}
	if passthrough(err) {
		return nil, err
	}
	if IsProtected(err, data) {
		return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
	}
	if !IsArchiveCorruption(err) {
		return nil, fmt.Errorf("%w: %v", ErrCorruptContainer, err)
	}

	d.logger.Warnf("Container archive damaged (%v), repacking and retrying once", err)
	repaired, err := Repack(data)
	if err != nil {
		return nil, err
	}

	res, err = d.decode(ctx, repaired)
	if err != nil {
		if passthrough(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: still unreadable after repair: %v", ErrCorruptContainer, err)
	}
	res.Repaired = true
	d.logger.Info("Container recovered by repacking")
	return res, nil
}

// passthrough reports errors that are final regardless of archive state.
func passthrough(err error) bool {
	return errors.Is(err, preflight.ErrInputTooLarge) ||
		errors.Is(err, preflight.ErrEmptySheet) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (d *Decoder) decode(ctx context.Context, data []byte) (*DecodeResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, preflight.ErrEmptySheet
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []types.Record
	for rows.Next() {
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
		if err := d.limits.CheckRows(len(records) + 1); err != nil {
			return nil, err
		}
		if err := d.limits.CheckColumns(len(cols)); err != nil {
			return nil, err
		}
		records = append(records, recordFromRaw(cols))

		if len(records)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Error(); err != nil {
		return nil, err
	}

	for len(records) > 0 && records[len(records)-1].IsBlank() {
		records = records[:len(records)-1]
	}
	if len(records) == 0 {
		return nil, preflight.ErrEmptySheet
	}

	d.logger.Debugf("Decoded sheet %q: %d rows", sheet, len(records))
	return &DecodeResult{Table: types.NewTable(records), Sheet: sheet}, nil
}

func recordFromRaw(cols []string) types.Record {
	rec := make(types.Record, len(cols))
	for i, v := range cols {
		rec[i] = rawCell(v)
	}
	return rec
}

// rawCell types a raw stored value. Values that read as plain numbers
// without a leading zero become numeric cells; everything else stays text
// so "0981..." keeps its zero.
func rawCell(v string) types.Cell {
	if v == "" {
		return types.EmptyCell()
	}
	if looksNumeric(v) {
		if d, err := decimal.NewFromString(v); err == nil {
			return types.NewNumber(d)
		}
	}
	return types.NewText(v)
}

func looksNumeric(v string) bool {
	s := strings.TrimPrefix(v, "-")
	if s == "" || s[0] < '0' || s[0] > '9' {
		return false
	}
	if s[0] == '0' && len(s) > 1 && s[1] != '.' {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9', c == '.', c == 'e', c == 'E', c == '+', c == '-':
		default:
			return false
		}
	}
	return true
}
