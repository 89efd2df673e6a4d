package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dbsmedya/phoneclean/internal/cleaner"
	"github.com/dbsmedya/phoneclean/internal/container"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestRepairCommandStructure(t *testing.T) {
	assert.Equal(t, "repair <file.xlsx>", repairCmd.Use)
	assert.NotEmpty(t, repairCmd.Short)
	assert.Contains(t, repairCmd.Long, "Example:")
	assert.NotNil(t, repairCmd.Flags().Lookup("output"))
}

func TestRunRepair(t *testing.T) {
	dir := t.TempDir()
	data := buildWorkbook(t, [][]interface{}{
		{"Name", "Mobile"},
		{"Asha", "9818202888"},
		{"Meera", "7012345678"},
	})
	in := filepath.Join(dir, "book.xlsx")
	require.NoError(t, os.WriteFile(in, data, 0o644))
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "repair", in, "--output-dir", outDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "=== Repair Complete ===")
	assert.Regexp(t, `Rows:\s+3`, out)

	repaired, err := os.ReadFile(filepath.Join(outDir, "book_repaired.xlsx"))
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytesReader(repaired))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue("Sheet1", "B3")
	require.NoError(t, err)
	assert.Equal(t, "7012345678", v)
}

func TestRunRepairExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "book.xlsm")
	require.NoError(t, os.WriteFile(in, buildWorkbook(t, [][]interface{}{{"Mobile"}, {"9818202888"}}), 0o644))
	target := filepath.Join(dir, "nested", "fixed.xlsm")

	out, err := execute(t, "repair", in, "--output", target)
	require.NoError(t, err, out)
	assert.FileExists(t, target)
}

func TestRunRepairErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "repair", writeFile(t, dir, "contacts.csv", contactsCSV))
	assert.ErrorIs(t, err, cleaner.ErrUnsupportedFormat)

	_, err = execute(t, "repair", writeFile(t, dir, "junk.xlsx", "nothing to see"))
	assert.ErrorIs(t, err, container.ErrCorruptContainer)
	assert.Contains(t, err.Error(), cleaner.CodeCorrupt)

	_, err = execute(t, "repair", filepath.Join(dir, "missing.xlsx"))
	assert.Error(t, err)
}
