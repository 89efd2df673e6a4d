package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/xuri/excelize/v2"

	"github.com/dbsmedya/phoneclean/internal/cleaner"
	"github.com/dbsmedya/phoneclean/internal/export"
	"github.com/dbsmedya/phoneclean/internal/logger"
)

// runError prefixes err with the message and support code users see.
// The cause stays wrapped for errors.Is.
func runError(err error) error {
	return fmt.Errorf("%s: %w", cleaner.UserMessage(err), err)
}

// signalContext cancels the returned context on SIGINT or SIGTERM. The
// run stops at its next yield point.
func signalContext(parent context.Context, log *logger.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Warn("Received shutdown signal - stopping at the next yield point...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// buildRequest turns the selection flags shared by clean, preview and
// report into a run request.
func buildRequest(columns []string, nameColumn string, headerRow int) (cleaner.Request, error) {
	if headerRow < 0 {
		return cleaner.Request{}, fmt.Errorf("--header-row must not be negative")
	}
	req := cleaner.Request{
		NameColumn: strings.TrimSpace(nameColumn),
		HeaderRow:  headerRow,
	}
	for _, c := range columns {
		if c = strings.TrimSpace(c); c != "" {
			req.Columns = append(req.Columns, c)
		}
	}
	return req, nil
}

// writeOutput stores out under dir and returns the written path.
func writeOutput(dir string, out *export.Output) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, out.FileName)
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// progressPrinter redraws a single percentage line on w.
func progressPrinter(w io.Writer) func(percent int) {
	return func(percent int) {
		_, _ = fmt.Fprintf(w, "\rProcessing... %3d%%", percent)
		if percent >= 100 {
			_, _ = fmt.Fprintln(w)
		}
	}
}

// columnLetter returns the spreadsheet letter of a zero-based column, or
// "-" when col is negative.
func columnLetter(col int) string {
	if col < 0 {
		return "-"
	}
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return "?"
	}
	return name
}

func columnLetters(cols []int) string {
	if len(cols) == 0 {
		return "-"
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = columnLetter(c)
	}
	return strings.Join(names, ", ")
}

// humanBytes formats n with a binary unit.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func printField(w io.Writer, label string, value interface{}) {
	_, _ = fmt.Fprintf(w, "%-18s %v\n", label+":", value)
}

func printWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", color.Yellow.Sprint("Warnings:"))
	for _, warning := range warnings {
		_, _ = fmt.Fprintf(w, "  - %s\n", warning)
	}
}
