package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/phoneclean/internal/cleaner"
)

var (
	previewRows       int
	previewColumns    []string
	previewNameColumn string
	previewHeaderRow  int
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show the first rows and the detected columns",
	Long: `Preview prints the first rows of a file as a table and shows which
header row, name column and number columns a clean would use.

Number columns are highlighted and the header row is marked with "H".
Nothing is written to disk.

Example:
  phoneclean preview contacts.xlsx --rows 20
  phoneclean preview export.csv --header-row 2 --columns C`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", 0,
		"Number of rows to show (processing.preview_rows when 0)")
	previewCmd.Flags().StringSliceVar(&previewColumns, "columns", nil,
		"Number columns by header name, letter or 1-based index")
	previewCmd.Flags().StringVar(&previewNameColumn, "name-column", "",
		"Name column reference")
	previewCmd.Flags().IntVar(&previewHeaderRow, "header-row", 0,
		"1-based header row (detected when 0)")

	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	req, err := buildRequest(previewColumns, previewNameColumn, previewHeaderRow)
	if err != nil {
		return err
	}
	session, err := cleaner.NewSession(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	in, closeInput, err := cleaner.OpenInput(args[0])
	if err != nil {
		return runError(err)
	}
	defer func() { _ = closeInput() }()

	ctx, stop := signalContext(cmd.Context(), log)
	defer stop()

	pr, err := session.Preview(ctx, in, req, previewRows)
	if err != nil {
		return runError(err)
	}
	return printPreview(cmd.OutOrStdout(), pr)
}

func printPreview(w io.Writer, pr *cleaner.PreviewResult) error {
	printField(w, "Input", pr.Input)
	if pr.Delimiter != 0 {
		printField(w, "Delimiter", strconv.Quote(string(pr.Delimiter)))
	}
	if pr.Repaired {
		printField(w, "Repaired", color.Yellow.Sprint("yes"))
	}
	_, _ = fmt.Fprintln(w)

	if err := previewTable(pr).render(w); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w)

	sel := pr.Selection
	if sel.HeaderRow >= 0 {
		printField(w, "Header row", sel.HeaderRow+1)
	} else {
		printField(w, "Header row", "-")
	}
	printField(w, "Name column", columnLetter(sel.NameColumn))
	printField(w, "Number columns", color.Cyan.Sprint(columnLetters(sel.NumberColumns)))
	if pr.SelectionErr != nil {
		_, _ = fmt.Fprintf(w, "\n%s %s\n", color.Yellow.Sprint("Note:"), cleaner.UserMessage(pr.SelectionErr).Text)
	}
	return nil
}

// previewTable lays the rows out under their column letters with a
// leading row number column.
func previewTable(pr *cleaner.PreviewResult) *table {
	width := 0
	for _, r := range pr.Rows {
		if len(r) > width {
			width = len(r)
		}
	}

	t := &table{
		header:    make([]string, width+1),
		highlight: map[int]color.Color{},
		strong:    map[int]bool{},
	}
	t.header[0] = "#"
	for i := 0; i < width; i++ {
		t.header[i+1] = columnLetter(i)
	}
	for _, c := range pr.Selection.NumberColumns {
		t.highlight[c+1] = color.Cyan
	}

	for i, r := range pr.Rows {
		label := strconv.Itoa(i + 1)
		if i == pr.Selection.HeaderRow {
			label += " H"
			t.strong[i] = true
		}
		t.rows = append(t.rows, append([]string{label}, r...))
	}
	return t
}
