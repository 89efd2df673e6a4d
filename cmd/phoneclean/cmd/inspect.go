package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/phoneclean/internal/cleaner"
	"github.com/dbsmedya/phoneclean/internal/preflight"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Check whether a file can be cleaned safely",
	Long: `Inspect runs the size checks of a clean without cleaning.

Checks performed:
  - File size against limits.max_file_size
  - Worksheet archive size of Excel files
  - Row, column and cell counts against the limits

The verdict is proceed, warn or reject.

Example:
  phoneclean inspect contacts.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

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

	insp, err := session.Inspect(ctx, in)
	if insp != nil {
		printInspection(cmd.OutOrStdout(), insp)
	}
	if err != nil {
		return runError(err)
	}
	return nil
}

func printInspection(w io.Writer, insp *cleaner.Inspection) {
	printField(w, "Input", insp.Input)
	printField(w, "Type", insp.Family)
	printField(w, "Size", humanBytes(insp.Size))
	if insp.Delimiter != 0 {
		printField(w, "Delimiter", strconv.Quote(string(insp.Delimiter)))
	}
	if a := insp.Archive; a != nil {
		printField(w, "Worksheets", a.Sheets)
		printField(w, "Worksheet XML", humanBytes(a.WorksheetBytes))
	}
	if d := insp.Dimensions; d.Rows > 0 || d.Columns > 0 {
		printField(w, "Rows", d.Rows)
		printField(w, "Columns", d.Columns)
		printField(w, "Cells", d.CellCount())
	}
	printField(w, "Verdict", verdictLabel(insp.Verdict))
	printWarnings(w, insp.Warnings)
}

func verdictLabel(v preflight.Verdict) string {
	switch v {
	case preflight.Proceed:
		return color.Green.Sprint(v)
	case preflight.Warn:
		return color.Yellow.Sprint(v)
	default:
		return color.Red.Sprint(v)
	}
}
