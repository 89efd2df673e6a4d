// Package verifier re-reads a produced export and checks it against the
// rows that were meant to be written.
package verifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/dbsmedya/phoneclean/internal/export"
	"github.com/dbsmedya/phoneclean/internal/logger"
	"github.com/dbsmedya/phoneclean/internal/types"
)

// VerificationMethod defines how an output is checked.
type VerificationMethod string

const (
	// MethodCount compares the number of body rows (fast)
	MethodCount VerificationMethod = "count"
	// MethodSHA256 compares a hash of every row, header included
	MethodSHA256 VerificationMethod = "sha256"
	// MethodSkip skips verification entirely
	MethodSkip VerificationMethod = "skip"
)

// ErrMismatch is returned when the re-read output differs from what was
// written.
var ErrMismatch = errors.New("output verification failed")

// ctxCheckEvery is how many re-read rows pass between cancellation checks.
const ctxCheckEvery = 1000

// VerifyResult holds the outcome of one verification.
type VerifyResult struct {
	Method       VerificationMethod
	Expected     int64 // body rows meant to be written
	Actual       int64 // body rows read back
	ExpectedHash string
	ActualHash   string
	Match        bool
	ErrorMessage string
}

// Verifier checks exports by reading them back.
type Verifier struct {
	method VerificationMethod
	logger *logger.Logger
}

// NewVerifier creates a verifier. An empty method defaults to count.
func NewVerifier(method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if log == nil {
		log = logger.NewDefault()
	}
	if method == "" {
		method = MethodCount
	}
	switch method {
	case MethodCount, MethodSHA256, MethodSkip:
	default:
		return nil, fmt.Errorf("unsupported verification method: %s", method)
	}
	return &Verifier{method: method, logger: log}, nil
}

// Verify reads out back and compares it with shape. Blank rows are
// ignored on both sides since CSV readers drop them.
func (v *Verifier) Verify(ctx context.Context, shape export.Shape, out *export.Output) (*VerifyResult, error) {
	if v.method == MethodSkip {
		v.logger.Info("Verification SKIPPED (method=skip)")
		return &VerifyResult{Method: MethodSkip, Match: true}, nil
	}
	if out == nil {
		return nil, fmt.Errorf("nothing to verify")
	}

	expected := expectedRows(shape)
	actual, err := readBack(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("failed to read back %s output: %w", out.Format, err)
	}

	result := &VerifyResult{
		Method:   v.method,
		Expected: bodyCount(expected),
		Actual:   bodyCount(actual),
	}

	switch v.method {
	case MethodCount:
		result.Match = result.Expected == result.Actual
	case MethodSHA256:
		result.ExpectedHash = hashRows(expected)
		result.ActualHash = hashRows(actual)
		result.Match = result.Expected == result.Actual && result.ExpectedHash == result.ActualHash
	}

	if !result.Match {
		if result.Expected != result.Actual {
			result.ErrorMessage = fmt.Sprintf("count mismatch: expected=%d, actual=%d", result.Expected, result.Actual)
		} else {
			result.ErrorMessage = fmt.Sprintf("hash mismatch: expected=%s, actual=%s", result.ExpectedHash[:16], result.ActualHash[:16])
		}
		v.logger.Errorf("Verification FAILED for %s: %s", out.FileName, result.ErrorMessage)
		return result, fmt.Errorf("%w: %s", ErrMismatch, result.ErrorMessage)
	}

	v.logger.Infof("Verification PASSED (method=%s, %d rows)", v.method, result.Actual)
	return result, nil
}

// GetMethod returns the configured verification method.
func (v *Verifier) GetMethod() VerificationMethod {
	return v.method
}

// expectedRows renders the shape the way a reader sees it: header first,
// sanitized text, trailing empty cells dropped.
func expectedRows(shape export.Shape) [][]string {
	rows := make([][]string, 0, len(shape.Rows)+1)
	header := make([]string, len(shape.Header))
	for i, h := range shape.Header {
		header[i] = export.Sanitize(h)
	}
	rows = appendRow(rows, header)
	for _, rec := range shape.Rows {
		rows = appendRow(rows, renderRecord(rec))
	}
	return rows
}

func renderRecord(rec types.Record) []string {
	out := make([]string, len(rec))
	for i, c := range rec {
		out[i] = export.Sanitize(c.String())
	}
	return out
}

func readBack(ctx context.Context, out *export.Output) ([][]string, error) {
	switch out.Format {
	case export.FormatCSV:
		return readCSV(ctx, out.Data)
	case export.FormatXLSX:
		return readXLSX(ctx, out.Data)
	default:
		return nil, fmt.Errorf("unknown output format %q", out.Format)
	}
}

func readCSV(ctx context.Context, data []byte) ([][]string, error) {
	r := csv.NewReader(transform.NewReader(bytes.NewReader(data), unicode.UTF8BOM.NewDecoder()))
	r.FieldsPerRecord = -1

	var rows [][]string
	for n := 1; ; n++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = appendRow(rows, rec)
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return rows, nil
}

func readXLSX(ctx context.Context, data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	it, err := f.Rows(sheets[0])
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var rows [][]string
	for n := 1; it.Next(); n++ {
		cols, err := it.Columns()
		if err != nil {
			return nil, err
		}
		rows = appendRow(rows, cols)
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return rows, it.Error()
}

// appendRow trims trailing empty cells and skips rows left empty.
func appendRow(rows [][]string, row []string) [][]string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	if end == 0 {
		return rows
	}
	return append(rows, row[:end])
}

func bodyCount(rows [][]string) int64 {
	if len(rows) == 0 {
		return 0
	}
	return int64(len(rows) - 1)
}

// hashRows hashes rows with a null byte between cells and a newline
// between rows. Carriage returns are dropped since CSV line endings
// inside quoted cells do not survive a round trip.
func hashRows(rows [][]string) string {
	h := sha256.New()
	for _, row := range rows {
		line := strings.ReplaceAll(strings.Join(row, "\x00"), "\r", "")
		h.Write([]byte(line))
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}
