package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/phoneclean/internal/cleaner"
	"github.com/dbsmedya/phoneclean/internal/container"
	"github.com/dbsmedya/phoneclean/internal/export"
	"github.com/dbsmedya/phoneclean/internal/preflight"
)

var repairOutput string

var repairCmd = &cobra.Command{
	Use:   "repair <file.xlsx>",
	Short: "Rewrite a damaged Excel file",
	Long: `Repair re-packs the archive of an .xlsx or .xlsm file and writes the
result to the output directory as <name>_repaired.xlsx (or .xlsm).

Entries with bad checksums are kept. When the archive directory is
unreadable the entries are recovered from their local headers. The
repaired file is decoded once to confirm it opens.

Example:
  phoneclean repair broken.xlsx
  phoneclean repair broken.xlsx --output fixed.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().StringVar(&repairOutput, "output", "",
		"Path of the repaired file (defaults to <output-dir>/<name>_repaired.xlsx)")

	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	path := args[0]
	family, err := cleaner.FormatOf(path)
	if err != nil {
		return runError(err)
	}
	if family != cleaner.FamilyContainer {
		return runError(fmt.Errorf("%w: only Excel files can be repaired", cleaner.ErrUnsupportedFormat))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := preflight.CheckFileSize(info.Size(), cfg.Limits.MaxFileSize); err != nil {
		return runError(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	repaired, err := container.Repack(data)
	if err != nil {
		return runError(err)
	}

	ctx, stop := signalContext(cmd.Context(), log)
	defer stop()

	dec := container.NewDecoder(preflight.LimitsFromConfig(cfg.Limits), log)
	res, err := dec.Decode(ctx, repaired)
	if err != nil {
		return runError(err)
	}

	out := repairOutput
	if out == "" {
		name := export.CleanBaseName(path) + "_repaired" + strings.ToLower(filepath.Ext(path))
		out = filepath.Join(cfg.Export.OutputDir, name)
	}
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, repaired, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	log.Infow("Repaired container",
		"input", path,
		"output", out,
		"sheet", res.Sheet,
		"rows", res.Table.Len(),
	)

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "\n%s\n", color.Bold.Sprint("=== Repair Complete ==="))
	printField(w, "Input", path)
	printField(w, "Sheet", res.Sheet)
	printField(w, "Rows", res.Table.Len())
	printField(w, "Size", fmt.Sprintf("%s -> %s", humanBytes(int64(len(data))), humanBytes(int64(len(repaired)))))
	printField(w, "Output", out)
	return nil
}
