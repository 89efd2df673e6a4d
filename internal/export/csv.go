package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/dbsmedya/phoneclean/internal/types"
)

// EncodeCSV writes the shape as UTF-8 CSV with a byte order mark and
// CRLF line endings.
func EncodeCSV(s Shape) ([]byte, error) {
	var buf bytes.Buffer
	bom := transform.NewWriter(&buf, unicode.UTF8BOM.NewEncoder())

	w := csv.NewWriter(bom)
	w.UseCRLF = true

	if err := w.Write(sanitizeAll(s.Header)); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	width := len(s.Header)
	for i, rec := range s.Rows {
		if err := w.Write(csvFields(rec, width)); err != nil {
			return nil, fmt.Errorf("failed to write csv row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := bom.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvFields(rec types.Record, width int) []string {
	if len(rec) > width {
		width = len(rec)
	}
	fields := make([]string, width)
	for i := range rec {
		fields[i] = Sanitize(rec[i].String())
	}
	return fields
}

func sanitizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Sanitize(s)
	}
	return out
}
