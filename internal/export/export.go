// Package export shapes pipeline results into output tables and
// serializes them as XLSX or CSV.
package export

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/logger"
	"github.com/dbsmedya/phoneclean/internal/pipeline"
	"github.com/dbsmedya/phoneclean/internal/types"
)

// ErrSerialization is returned when neither XLSX nor CSV output could be
// produced.
var ErrSerialization = errors.New("failed to serialize output")

// Format is an output encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// MIME types of the produced outputs.
const (
	MIMECSV  = "text/csv"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// MobileHeader labels number columns that have no source header.
const MobileHeader = "Mobile"

// Output is a serialized export.
type Output struct {
	Data     []byte
	MIME     string
	FileName string
	Rows     int // body rows, header excluded
	Format   Format
	FellBack bool // XLSX failed and CSV was produced instead
}

// Shape is the header and body of an export, before serialization.
type Shape struct {
	Header []string
	Rows   []types.Record
}

// Build assembles the header and body rows for the result's mode.
func Build(res *pipeline.Result) Shape {
	switch res.Mode {
	case pipeline.ModeUnique:
		rows := make([]types.Record, len(res.Numbers))
		for i, n := range res.Numbers {
			rows[i] = types.Record{types.NewText(n)}
		}
		return Shape{Header: []string{MobileHeader}, Rows: rows}

	case pipeline.ModeMobileName:
		name := res.NameHeader
		if name == "" {
			name = "Name"
		}
		rows := make([]types.Record, len(res.Pairs))
		for i, p := range res.Pairs {
			rows[i] = types.Record{textOrEmpty(p.Name), types.NewText(p.Number)}
		}
		return Shape{Header: []string{name, MobileHeader}, Rows: rows}

	default:
		return Shape{Header: headerOf(res), Rows: res.Rows}
	}
}

func headerOf(res *pipeline.Result) []string {
	width := len(res.Header)
	for _, r := range res.Rows {
		if len(r) > width {
			width = len(r)
		}
	}
	header := make([]string, width)
	for i := range header {
		h := strings.TrimSpace(res.Header.Get(i).String())
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		header[i] = h
	}
	return header
}

func textOrEmpty(s string) types.Cell {
	if s == "" {
		return types.EmptyCell()
	}
	return types.NewText(s)
}

// Sanitize truncates text to the maximum number of characters a
// spreadsheet cell can hold.
func Sanitize(s string) string {
	if utf8.RuneCountInString(s) <= excelize.TotalCellChars {
		return s
	}
	return string([]rune(s)[:excelize.TotalCellChars])
}

// Composer serializes pipeline results.
type Composer struct {
	cfg    config.ExportConfig
	logger *logger.Logger

	writeXLSX func(Shape) ([]byte, error)
	writeCSV  func(Shape) ([]byte, error)
}

// NewComposer creates a composer for the given export settings.
func NewComposer(cfg config.ExportConfig, log *logger.Logger) *Composer {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Composer{
		cfg:       cfg,
		logger:    log,
		writeXLSX: EncodeXLSX,
		writeCSV:  EncodeCSV,
	}
}

// Choose resolves the output format for a result with rows body rows.
// Auto picks CSV above the fallback threshold, which is lower for
// keep_all.
func (c *Composer) Choose(mode pipeline.Mode, rows int) Format {
	switch Format(strings.ToLower(c.cfg.Format)) {
	case FormatCSV:
		return FormatCSV
	case FormatXLSX:
		return FormatXLSX
	}
	limit := c.cfg.CSVFallbackRows
	if mode == pipeline.ModeKeepAll && c.cfg.KeepAllCSVFallbackRows > 0 {
		limit = c.cfg.KeepAllCSVFallbackRows
	}
	if limit > 0 && rows > limit {
		return FormatCSV
	}
	return FormatXLSX
}

// Compose serializes res. baseName is the input file name used to
// suggest the output name. If XLSX serialization fails the output is
// produced as CSV instead.
func (c *Composer) Compose(res *pipeline.Result, baseName string) (*Output, error) {
	shape := Build(res)
	rows := len(shape.Rows)
	format := c.Choose(res.Mode, rows)

	out := &Output{Rows: rows}
	if format == FormatXLSX {
		data, err := c.writeXLSX(shape)
		if err == nil {
			out.Data, out.MIME, out.Format = data, MIMEXLSX, FormatXLSX
			out.FileName = SuggestFileName(baseName, res.Mode, rows, FormatXLSX)
			return out, nil
		}
		c.logger.Warnf("XLSX export failed (%v), falling back to CSV", err)
		out.FellBack = true
	} else {
		c.logger.Infof("Writing %d rows as CSV", rows)
	}

	data, err := c.writeCSV(shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	out.Data, out.MIME, out.Format = data, MIMECSV, FormatCSV
	out.FileName = SuggestFileName(baseName, res.Mode, rows, FormatCSV)
	return out, nil
}
