package cleaner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions that are neither
// delimited text nor a spreadsheet container.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Family is the reader family an input belongs to.
type Family int

const (
	// FamilyUnknown lets the session derive the family from the name.
	FamilyUnknown Family = iota
	// FamilyDelimited is streamed line by line.
	FamilyDelimited
	// FamilyContainer is decoded as a workbook.
	FamilyContainer
)

func (f Family) String() string {
	switch f {
	case FamilyDelimited:
		return "delimited"
	case FamilyContainer:
		return "container"
	default:
		return "unknown"
	}
}

// FormatOf derives the family from a file name extension.
func FormatOf(name string) (Family, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "csv", "tsv", "txt":
		return FamilyDelimited, nil
	case "xlsx", "xlsm":
		return FamilyContainer, nil
	}
	if ext == "" {
		return FamilyUnknown, fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
	}
	return FamilyUnknown, fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
}

// Input is one file to clean. Source must stay readable for the whole
// run.
type Input struct {
	Name   string
	Format Family
	Size   int64
	Source io.ReaderAt
}

// NewInput wraps an in-memory file.
func NewInput(name string, data []byte) Input {
	return Input{Name: name, Size: int64(len(data)), Source: bytes.NewReader(data)}
}

// OpenInput opens a file from disk. The returned close function must be
// called once the run is finished.
func OpenInput(path string) (Input, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return Input{}, nil, fmt.Errorf("failed to open input: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return Input{}, nil, fmt.Errorf("failed to stat input: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return Input{}, nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, path)
	}
	return Input{Name: filepath.Base(path), Size: info.Size(), Source: f}, f.Close, nil
}

// family resolves the input family, falling back to the extension.
func (in Input) family() (Family, error) {
	if in.Format != FamilyUnknown {
		return in.Format, nil
	}
	return FormatOf(in.Name)
}

func (in Input) reader() *io.SectionReader {
	return io.NewSectionReader(in.Source, 0, in.Size)
}
