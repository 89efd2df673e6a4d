package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/phoneclean/internal/cleaner"
)

var (
	cleanColumns    []string
	cleanNameColumn string
	cleanHeaderRow  int
	cleanReports    bool
	cleanProgress   bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Clean the phone numbers of a contact list",
	Long: `Clean reads a CSV, TSV, TXT or Excel file, extracts the mobile numbers,
normalizes them and writes the cleaned file to the output directory.

The cleaning process follows these steps:
  1. Check the file size and sheet dimensions
  2. Detect the header row, the name column and the number columns
  3. Validate, normalize and de-duplicate every number
  4. Export in the selected mode (full, unique, mobile_name, keep_all)
  5. Verify the written file by reading it back

Example:
  phoneclean clean contacts.xlsx --mode unique --reports
  phoneclean clean export.csv --columns C,D --name-column A --header-row 2`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringSliceVar(&cleanColumns, "columns", nil,
		"Number columns by header name, letter or 1-based index (detected when empty)")
	cleanCmd.Flags().StringVar(&cleanNameColumn, "name-column", "",
		"Name column reference (detected when empty)")
	cleanCmd.Flags().IntVar(&cleanHeaderRow, "header-row", 0,
		"1-based header row (detected when 0)")
	cleanCmd.Flags().BoolVar(&cleanReports, "reports", false,
		"Also write the valid, duplicate and invalid audit reports")
	cleanCmd.Flags().BoolVar(&cleanProgress, "progress", false,
		"Show progress on stderr")

	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	req, err := buildRequest(cleanColumns, cleanNameColumn, cleanHeaderRow)
	if err != nil {
		return err
	}
	req.Reports = cleanReports
	if cleanProgress {
		req.Progress = progressPrinter(cmd.ErrOrStderr())
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

	log.Infow("Starting clean",
		"input", in.Name,
		"size", in.Size,
		"config", GetConfigFile(),
	)

	ctx, stop := signalContext(cmd.Context(), log)
	defer stop()

	res, err := session.Clean(ctx, in, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Clean cancelled by user")
			return nil
		}
		return runError(err)
	}

	outPath, err := writeOutput(cfg.Export.OutputDir, res.Output)
	if err != nil {
		return err
	}
	var reportPaths []string
	for _, r := range res.Reports {
		p, err := writeOutput(cfg.Export.OutputDir, r)
		if err != nil {
			return err
		}
		reportPaths = append(reportPaths, p)
	}

	printCleanSummary(cmd.OutOrStdout(), res, outPath, reportPaths)
	return nil
}

func printCleanSummary(w io.Writer, res *cleaner.RunResult, outPath string, reportPaths []string) {
	_, _ = fmt.Fprintf(w, "\n%s\n", color.Bold.Sprint("=== Clean Complete ==="))
	printField(w, "Run", res.RunID)
	printField(w, "Input", res.Input)
	printField(w, "Mode", res.Mode)
	printField(w, "Duration", res.Duration.Round(time.Millisecond))
	printField(w, "Rows", res.Stats.Total)
	printField(w, "Valid", color.Green.Sprint(res.Stats.Valid))
	printField(w, "Duplicates", color.Yellow.Sprint(res.Stats.Duplicates))
	printField(w, "Invalid pattern", color.Red.Sprint(res.Stats.InvalidPattern))
	printField(w, "Invalid length", color.Red.Sprint(res.Stats.InvalidLength))
	if res.RowErrors > 0 {
		printField(w, "Skipped cells", color.Red.Sprint(res.RowErrors))
	}
	if res.Verification != nil {
		printField(w, "Verification", verificationLabel(res))
	}
	printField(w, "Output", fmt.Sprintf("%s (%d rows, %s)", outPath, res.Output.Rows, res.Output.Format))

	if len(reportPaths) > 0 {
		_, _ = fmt.Fprintf(w, "\nReports:\n")
		for _, p := range reportPaths {
			_, _ = fmt.Fprintf(w, "  - %s\n", p)
		}
	}
	printWarnings(w, res.Warnings)
}

func verificationLabel(res *cleaner.RunResult) string {
	v := res.Verification
	if v.Match {
		return color.Green.Sprintf("%s ok", v.Method)
	}
	return color.Red.Sprintf("%s mismatch", v.Method)
}
