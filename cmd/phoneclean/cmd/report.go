package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/phoneclean/internal/cleaner"
	"github.com/dbsmedya/phoneclean/internal/export"
	"github.com/dbsmedya/phoneclean/internal/pipeline"
)

var (
	reportColumns    []string
	reportNameColumn string
	reportHeaderRow  int
	reportLimit      int
	reportWrite      bool
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Audit which numbers were kept and which were rejected",
	Long: `Report runs a clean and prints a sample of every category:

  valid            numbers kept in the output
  duplicate        numbers seen before
  invalid_pattern  numbers rejected by the accepted pattern
  invalid_length   values with the wrong number of digits

Rows are 1-based as shown by spreadsheet programs. The cleaned file is
not written; use --write to save the four reports as CSV.

Example:
  phoneclean report contacts.xlsx --limit 20
  phoneclean report contacts.csv --write --output-dir audit/`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringSliceVar(&reportColumns, "columns", nil,
		"Number columns by header name, letter or 1-based index")
	reportCmd.Flags().StringVar(&reportNameColumn, "name-column", "",
		"Name column reference")
	reportCmd.Flags().IntVar(&reportHeaderRow, "header-row", 0,
		"1-based header row (detected when 0)")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 10,
		"Samples printed per category (0 prints none)")
	reportCmd.Flags().BoolVar(&reportWrite, "write", false,
		"Write the four reports to the output directory")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	req, err := buildRequest(reportColumns, reportNameColumn, reportHeaderRow)
	if err != nil {
		return err
	}
	req.Reports = true

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

	res, err := session.Clean(ctx, in, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Report cancelled by user")
			return nil
		}
		return runError(err)
	}

	w := cmd.OutOrStdout()
	printReports(w, res, reportLimit)

	if reportWrite {
		_, _ = fmt.Fprintf(w, "\nReports:\n")
		for _, r := range res.Reports {
			p, err := writeOutput(cfg.Export.OutputDir, r)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(w, "  - %s (%d rows)\n", p, r.Rows)
		}
	}
	printWarnings(w, res.Warnings)
	return nil
}

var categoryColors = map[pipeline.Category]color.Color{
	pipeline.CategoryValid:          color.Green,
	pipeline.CategoryDuplicate:      color.Yellow,
	pipeline.CategoryInvalidPattern: color.Red,
	pipeline.CategoryInvalidLength:  color.Red,
}

func categoryCount(stats pipeline.RunStats, cat pipeline.Category) int {
	switch cat {
	case pipeline.CategoryValid:
		return stats.Valid
	case pipeline.CategoryDuplicate:
		return stats.Duplicates
	case pipeline.CategoryInvalidPattern:
		return stats.InvalidPattern
	default:
		return stats.InvalidLength
	}
}

// printReports prints one heading per category with its count and up to
// limit samples.
func printReports(w io.Writer, res *cleaner.RunResult, limit int) {
	_, _ = fmt.Fprintf(w, "%s  %s, %d rows\n", color.Bold.Sprint("Audit of"), res.Input, res.Stats.Total)
	if res.Fast {
		_, _ = fmt.Fprintln(w, color.Yellow.Sprint("Samples were not collected for this file; only counts are shown."))
	}

	if res.Samples == nil {
		return
	}
	for _, r := range export.Reports(res.Samples) {
		count := categoryCount(res.Stats, r.Category)
		_, _ = fmt.Fprintf(w, "\n%s %d\n", categoryColors[r.Category].Sprintf("%-16s", r.Category), count)
		if limit <= 0 || len(r.Shape.Rows) == 0 {
			continue
		}

		rows := r.Shape.Rows
		if len(rows) > limit {
			rows = rows[:limit]
		}
		t := &table{header: r.Shape.Header}
		for _, rec := range rows {
			t.rows = append(t.rows, rec.Strings())
		}
		_ = t.render(w)
		if more := count - len(rows); more > 0 {
			_, _ = fmt.Fprintf(w, "... and %d more\n", more)
		}
	}
}
