package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/dbsmedya/phoneclean/internal/pipeline"
	"github.com/dbsmedya/phoneclean/internal/types"
)

// Report is the audit table of one statistics bucket.
type Report struct {
	Category pipeline.Category
	Shape    Shape
}

// BuildReport turns the samples of one bucket into a table. Row numbers
// are 1-based as shown by spreadsheet programs; columns are letters.
func BuildReport(cat pipeline.Category, col *pipeline.Collector) Report {
	header := []string{"Row", "Column", "Mobile"}
	if cat == pipeline.CategoryInvalidPattern || cat == pipeline.CategoryInvalidLength {
		header = []string{"Row", "Column", "Value"}
	}

	samples := col.Samples(cat)
	rows := make([]types.Record, 0, len(samples))
	for _, s := range samples {
		value := s.Number
		if value == "" {
			value = s.Value
		}
		rows = append(rows, types.Record{
			types.NewText(strconv.Itoa(s.Row + 1)),
			textOrEmpty(columnName(s.Column)),
			textOrEmpty(value),
		})
	}
	return Report{Category: cat, Shape: Shape{Header: header, Rows: rows}}
}

// Reports builds the four audit tables in report order.
func Reports(col *pipeline.Collector) []Report {
	out := make([]Report, 0, len(pipeline.Categories))
	for _, cat := range pipeline.Categories {
		out = append(out, BuildReport(cat, col))
	}
	return out
}

// ComposeReport serializes one audit table as CSV.
func ComposeReport(r Report, baseName string) (*Output, error) {
	data, err := EncodeCSV(r.Shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return &Output{
		Data:     data,
		MIME:     MIMECSV,
		FileName: fmt.Sprintf("%s_%s_report.csv", CleanBaseName(baseName), r.Category),
		Rows:     len(r.Shape.Rows),
		Format:   FormatCSV,
	}, nil
}

func columnName(col int) string {
	if col < 0 {
		return ""
	}
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return ""
	}
	return name
}
