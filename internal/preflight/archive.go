package preflight

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Verdict is the outcome of the archive complexity check.
type Verdict int

const (
	Proceed Verdict = iota
	Warn
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Warn:
		return "warn"
	case Reject:
		return "reject"
	default:
		return "proceed"
	}
}

const (
	worksheetDir  = "xl/worksheets/"
	workbookPath  = "xl/workbook.xml"
	workbookRels  = "xl/_rels/workbook.xml.rels"
	fallbackSheet = "xl/worksheets/sheet1.xml"
)

// ArchiveReport summarizes the worksheet entries of a container.
type ArchiveReport struct {
	Sheets         int
	WorksheetBytes int64 // total uncompressed size of all worksheet entries
	Largest        string
	LargestBytes   int64
}

// InspectArchive reads the central directory of a container and sums the
// declared uncompressed sizes of its worksheet entries. No entry is
// decompressed.
func InspectArchive(r io.ReaderAt, size int64) (*ArchiveReport, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	rep := &ArchiveReport{}
	for _, f := range zr.File {
		if !isWorksheet(f.Name) {
			continue
		}
		n := int64(f.UncompressedSize64)
		rep.Sheets++
		rep.WorksheetBytes += n
		if n > rep.LargestBytes {
			rep.Largest = f.Name
			rep.LargestBytes = n
		}
	}
	return rep, nil
}

func isWorksheet(name string) bool {
	return strings.HasPrefix(name, worksheetDir) &&
		strings.HasSuffix(name, ".xml") &&
		!strings.Contains(name[len(worksheetDir):], "/")
}

// XMLLimits are the worksheet XML size thresholds.
type XMLLimits struct {
	Warn int64
	Max  int64
}

// Classify maps an archive report to a verdict. Reject carries an error
// wrapping ErrInputTooLarge; Warn carries a message for the caller.
func (l XMLLimits) Classify(rep *ArchiveReport) (Verdict, string, error) {
	switch {
	case l.Max > 0 && rep.WorksheetBytes > l.Max:
		return Reject, "", &LimitError{
			Check:   "sheet_xml",
			Message: "worksheet data is too large to decode, save the file as CSV and try again",
			Limit:   l.Max,
			Actual:  rep.WorksheetBytes,
		}
	case l.Warn > 0 && rep.WorksheetBytes > l.Warn:
		return Warn, fmt.Sprintf("complex workbook: %d MiB of worksheet data, CSV will process faster",
			rep.WorksheetBytes>>20), nil
	default:
		return Proceed, "", nil
	}
}

// errStopScan ends an element walk early.
var errStopScan = errors.New("stop scan")

// DeclaredDimension returns the <dimension ref> of the first worksheet.
// The worksheet XML is streamed only up to <sheetData>, so no row data is
// parsed. A worksheet without a dimension yields ErrEmptySheet.
func DeclaredDimension(r io.ReaderAt, size int64) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	sheetPath := firstSheetPath(entries)
	f, ok := entries[sheetPath]
	if !ok {
		return "", fmt.Errorf("worksheet %s not found in archive", sheetPath)
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", sheetPath, err)
	}
	defer func() { _ = rc.Close() }()

	var ref string
	err = scanElements(rc, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "dimension":
			ref = attr(se, "ref")
			return errStopScan
		case "sheetData":
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return "", fmt.Errorf("failed to read %s: %w", sheetPath, err)
	}
	if strings.TrimSpace(ref) == "" {
		return "", ErrEmptySheet
	}
	return ref, nil
}

// firstSheetPath resolves the first <sheet> of the workbook through the
// workbook relationships, falling back to sheet1.xml.
func firstSheetPath(entries map[string]*zip.File) string {
	var relID string
	if f, ok := entries[workbookPath]; ok {
		_ = readElements(f, func(se xml.StartElement) error {
			if se.Name.Local != "sheet" {
				return nil
			}
			for _, a := range se.Attr {
				if a.Name.Local == "id" && a.Name.Space != "" {
					relID = a.Value
				}
			}
			return errStopScan
		})
	}
	if relID == "" {
		return fallbackSheet
	}

	target := ""
	if f, ok := entries[workbookRels]; ok {
		_ = readElements(f, func(se xml.StartElement) error {
			if se.Name.Local == "Relationship" && attr(se, "Id") == relID {
				target = attr(se, "Target")
				return errStopScan
			}
			return nil
		})
	}
	switch {
	case target == "":
		return fallbackSheet
	case strings.HasPrefix(target, "/"):
		return strings.TrimPrefix(target, "/")
	default:
		return path.Join("xl", target)
	}
}

func readElements(f *zip.File, fn func(xml.StartElement) error) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	return scanElements(rc, fn)
}

// scanElements walks start elements until fn returns a non-nil error or
// the input ends. io.EOF from either source ends the walk quietly.
func scanElements(r io.Reader, fn func(xml.StartElement) error) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if se, ok := tok.(xml.StartElement); ok {
			if err := fn(se); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
	}
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
