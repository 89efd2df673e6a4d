package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/logger"
	"github.com/dbsmedya/phoneclean/internal/phone"
	"github.com/dbsmedya/phoneclean/internal/pipeline"
	"github.com/dbsmedya/phoneclean/internal/types"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

func sourceTable() *types.Table {
	t := types.NewTable([]types.Record{
		types.RecordOf("Name", "Mobile"),
		types.RecordOf("Asha", "9818202888"),
		types.RecordOf("Ravi", "919876501234"),
		types.RecordOf("Asha again", "+91 98182 02888"),
		types.RecordOf("Nobody", "n/a"),
	})
	t.HeaderRow = 0
	t.Selected = []int{1}
	return t
}

func run(t *testing.T, mode pipeline.Mode) *pipeline.Result {
	t.Helper()
	p := pipeline.New(pipeline.Options{
		Mode:           mode,
		Columns:        []int{1},
		NameColumn:     0,
		SampleCapacity: 10,
	}, phone.DefaultValidator(), logger.NewNop())
	res, err := p.Run(context.Background(), sourceTable())
	require.NoError(t, err)
	return res
}

func newComposer(format string) *Composer {
	cfg := config.DefaultConfig().Export
	cfg.Format = format
	return NewComposer(cfg, logger.NewNop())
}

func TestBuild(t *testing.T) {
	tests := []struct {
		mode       pipeline.Mode
		wantHeader []string
		wantRows   [][]string
	}{
		{
			mode:       pipeline.ModeFull,
			wantHeader: []string{"Name", "Mobile"},
			wantRows:   [][]string{{"Asha", "+919818202888"}, {"Ravi", "+919876501234"}},
		},
		{
			mode:       pipeline.ModeUnique,
			wantHeader: []string{"Mobile"},
			wantRows:   [][]string{{"+919818202888"}, {"+919876501234"}},
		},
		{
			mode:       pipeline.ModeMobileName,
			wantHeader: []string{"Name", "Mobile"},
			wantRows:   [][]string{{"Asha", "+919818202888"}, {"Ravi", "+919876501234"}},
		},
		{
			mode:       pipeline.ModeKeepAll,
			wantHeader: []string{"Name", "Mobile"},
			wantRows: [][]string{
				{"Asha", "+919818202888"},
				{"Ravi", "+919876501234"},
				{"Asha again", "+919818202888"},
				{"Nobody", "n/a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			shape := Build(run(t, tt.mode))
			assert.Equal(t, tt.wantHeader, shape.Header)
			got := make([][]string, len(shape.Rows))
			for i, r := range shape.Rows {
				got[i] = r.Strings()
			}
			assert.Equal(t, tt.wantRows, got)
		})
	}
}

func TestBuildFillsMissingHeaders(t *testing.T) {
	res := &pipeline.Result{
		Mode:   pipeline.ModeFull,
		Header: types.RecordOf("Name", ""),
		Rows:   []types.Record{types.RecordOf("a", "b", "c")},
	}
	assert.Equal(t, []string{"Name", "Column 2", "Column 3"}, Build(res).Header)
}

func TestEncodeCSV(t *testing.T) {
	shape := Shape{
		Header: []string{"Name", "Mobile"},
		Rows: []types.Record{
			types.RecordOf("Doe, Jane", "+919818202888"),
			types.RecordOf(`Say "hi"`, "+919876501234"),
			types.RecordOf("Two\nLines", nil),
		},
	}

	data, err := EncodeCSV(shape)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, bom))

	want := "Name,Mobile\r\n" +
		"\"Doe, Jane\",+919818202888\r\n" +
		"\"Say \"\"hi\"\"\",+919876501234\r\n" +
		"\"Two\r\nLines\",\r\n"
	assert.Equal(t, want, string(data[len(bom):]))
}

func TestEncodeXLSX(t *testing.T) {
	shape := Shape{
		Header: []string{"Name", "Mobile", "Count"},
		Rows: []types.Record{
			{types.NewText("Asha"), types.NewText("+919818202888"), types.NewNumber(decimal.NewFromInt(42))},
			{types.NewText("Ravi"), types.NewText("+919876501234")},
		},
	}

	data, err := EncodeXLSX(shape)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	dim, err := f.GetSheetDimension(SheetName)
	require.NoError(t, err)
	assert.Equal(t, "A1:C3", dim)

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Name", "Mobile", "Count"},
		{"Asha", "+919818202888", "42"},
		{"Ravi", "+919876501234"},
	}, rows)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "short", Sanitize("short"))

	long := strings.Repeat("é", excelize.TotalCellChars+10)
	got := Sanitize(long)
	assert.Equal(t, excelize.TotalCellChars, len([]rune(got)))
}

func TestChoose(t *testing.T) {
	c := newComposer("auto")
	cfg := c.cfg

	assert.Equal(t, FormatXLSX, c.Choose(pipeline.ModeFull, cfg.CSVFallbackRows))
	assert.Equal(t, FormatCSV, c.Choose(pipeline.ModeFull, cfg.CSVFallbackRows+1))
	assert.Equal(t, FormatCSV, c.Choose(pipeline.ModeKeepAll, cfg.KeepAllCSVFallbackRows+1))
	assert.Equal(t, FormatXLSX, c.Choose(pipeline.ModeUnique, cfg.KeepAllCSVFallbackRows+1))

	assert.Equal(t, FormatCSV, newComposer("csv").Choose(pipeline.ModeFull, 1))
	assert.Equal(t, FormatXLSX, newComposer("xlsx").Choose(pipeline.ModeKeepAll, 10_000_000))
}

func TestCompose(t *testing.T) {
	out, err := newComposer("auto").Compose(run(t, pipeline.ModeUnique), "uploads/Leads March.xlsx")
	require.NoError(t, err)

	assert.Equal(t, FormatXLSX, out.Format)
	assert.Equal(t, MIMEXLSX, out.MIME)
	assert.Equal(t, 2, out.Rows)
	assert.Equal(t, "Leads March_unique_2_rows.xlsx", out.FileName)
	assert.False(t, out.FellBack)
}

func TestComposeFallsBackToCSV(t *testing.T) {
	c := newComposer("xlsx")
	c.writeXLSX = func(Shape) ([]byte, error) { return nil, errors.New("zip: write error") }

	out, err := c.Compose(run(t, pipeline.ModeFull), "leads.csv")
	require.NoError(t, err)
	assert.True(t, out.FellBack)
	assert.Equal(t, FormatCSV, out.Format)
	assert.Equal(t, MIMECSV, out.MIME)
	assert.Equal(t, "leads_full_2_rows.csv", out.FileName)
	assert.True(t, bytes.HasPrefix(out.Data, bom))
}

func TestComposeFailsWhenBothFormatsFail(t *testing.T) {
	c := newComposer("auto")
	c.writeXLSX = func(Shape) ([]byte, error) { return nil, errors.New("xlsx broke") }
	c.writeCSV = func(Shape) ([]byte, error) { return nil, errors.New("csv broke") }

	_, err := c.Compose(run(t, pipeline.ModeFull), "leads.csv")
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestComposeUniqueIsIdempotent(t *testing.T) {
	c := newComposer("csv")
	first, err := c.Compose(run(t, pipeline.ModeUnique), "leads.csv")
	require.NoError(t, err)
	second, err := c.Compose(run(t, pipeline.ModeUnique), "leads.csv")
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)
}

func TestSuggestFileName(t *testing.T) {
	tests := []struct {
		base   string
		mode   pipeline.Mode
		rows   int
		format Format
		want   string
	}{
		{"contacts.csv", pipeline.ModeFull, 10, FormatCSV, "contacts_full_10_rows.csv"},
		{`C:\data\q1:leads?.xlsx`, pipeline.ModeUnique, 3, FormatXLSX, "q1_leads__unique_3_rows.xlsx"},
		{"", pipeline.ModeKeepAll, 0, FormatXLSX, "contacts_keep_all_0_rows.xlsx"},
		{"a|b<c>.txt", pipeline.ModeMobileName, 7, FormatCSV, "a_b_c__mobile_name_7_rows.csv"},
		{"weird", pipeline.ModeFull, 1, FormatAuto, "weird_full_1_rows.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestFileName(tt.base, tt.mode, tt.rows, tt.format))
		})
	}
}

func TestReports(t *testing.T) {
	res := run(t, pipeline.ModeFull)
	reports := Reports(res.Samples)
	require.Len(t, reports, 4)

	valid := reports[0]
	assert.Equal(t, pipeline.CategoryValid, valid.Category)
	assert.Equal(t, []string{"Row", "Column", "Mobile"}, valid.Shape.Header)
	require.Len(t, valid.Shape.Rows, 2)
	assert.Equal(t, []string{"2", "B", "+919818202888"}, valid.Shape.Rows[0].Strings())

	dup := reports[1]
	require.Len(t, dup.Shape.Rows, 1)
	assert.Equal(t, []string{"4", "B", "+919818202888"}, dup.Shape.Rows[0].Strings())

	length := reports[3]
	assert.Equal(t, []string{"Row", "Column", "Value"}, length.Shape.Header)
	require.Len(t, length.Shape.Rows, 1)
	assert.Equal(t, []string{"5", "B", "n/a"}, length.Shape.Rows[0].Strings())

	out, err := ComposeReport(dup, "leads.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "leads_duplicate_report.csv", out.FileName)
	assert.Equal(t, 1, out.Rows)
}
