package cleaner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dbsmedya/phoneclean/internal/container"
	"github.com/dbsmedya/phoneclean/internal/detect"
	"github.com/dbsmedya/phoneclean/internal/preflight"
	"github.com/dbsmedya/phoneclean/internal/stream"
	"github.com/dbsmedya/phoneclean/internal/types"
)

// PreviewResult holds the first rows of an input and the detected
// selection.
type PreviewResult struct {
	Input     string
	Rows      [][]string
	Selection detect.Selection
	Delimiter byte // 0 for containers
	Repaired  bool
	// SelectionErr is set when no usable selection was detected. The rows
	// are still returned so the caller can pick columns by hand.
	SelectionErr error
}

// Preview returns up to maxRows rows from the start of in together with
// the columns a run would use. maxRows <= 0 uses processing.preview_rows.
func (s *Session) Preview(ctx context.Context, in Input, req Request, maxRows int) (*PreviewResult, error) {
	if err := s.guard.AcquireOrFail(); err != nil {
		return nil, err
	}
	defer s.guard.Release()

	if maxRows <= 0 {
		maxRows = s.cfg.Processing.PreviewRows
	}
	family, err := in.family()
	if err != nil {
		return nil, err
	}
	if err := s.checker.CheckFile(in.Size); err != nil {
		return nil, err
	}

	pr := &PreviewResult{Input: in.Name}
	var records []types.Record

	switch family {
	case FamilyDelimited:
		r := &stream.Reader{ChunkSize: s.cfg.Processing.ChunkSize}
		rows, delim, err := r.Preview(ctx, in.reader(), in.Size, maxRows)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, preflight.ErrEmptySheet
		}
		pr.Delimiter = delim
		for _, row := range rows {
			records = append(records, types.RecordFromStrings(row))
		}
	case FamilyContainer:
		t, repaired, err := s.decodeContainer(ctx, in)
		if err != nil {
			return nil, err
		}
		pr.Repaired = repaired
		records = t.Records
		if len(records) > maxRows {
			records = records[:maxRows]
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, family)
	}

	for _, rec := range records {
		pr.Rows = append(pr.Rows, rec.Strings())
	}
	pr.Selection, pr.SelectionErr = s.selectColumns(records, req)
	return pr, nil
}

func (s *Session) decodeContainer(ctx context.Context, in Input) (*types.Table, bool, error) {
	data, err := io.ReadAll(in.reader())
	if err != nil {
		return nil, false, fmt.Errorf("failed to read input: %w", err)
	}
	if _, err := s.checker.CheckContainer(bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, false, err
	}
	decoded, err := container.NewDecoder(s.checker.Limits(), s.logger).Decode(ctx, data)
	if err != nil {
		return nil, false, err
	}
	return decoded.Table, decoded.Repaired, nil
}

// Inspection describes an input without cleaning it.
type Inspection struct {
	Input      string
	Family     Family
	Size       int64
	Dimensions preflight.Dimensions
	Verdict    preflight.Verdict
	Archive    *preflight.ArchiveReport
	Delimiter  byte
	Warnings   []string
}

// Inspect runs the size checks on in. For delimited input the rows are
// counted by streaming. The inspection is returned even when a limit is
// exceeded, together with the limit error.
func (s *Session) Inspect(ctx context.Context, in Input) (*Inspection, error) {
	if err := s.guard.AcquireOrFail(); err != nil {
		return nil, err
	}
	defer s.guard.Release()

	family, err := in.family()
	if err != nil {
		return nil, err
	}
	insp := &Inspection{Input: in.Name, Family: family, Size: in.Size}
	if err := s.checker.CheckFile(in.Size); err != nil {
		insp.Verdict = preflight.Reject
		return insp, err
	}

	switch family {
	case FamilyDelimited:
		r := &stream.Reader{ChunkSize: s.cfg.Processing.ChunkSize}
		delim, err := r.Records(ctx, in.reader(), in.Size, func(rec []string) bool {
			insp.Dimensions.Rows++
			if len(rec) > insp.Dimensions.Columns {
				insp.Dimensions.Columns = len(rec)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		insp.Delimiter = delim
		if insp.Dimensions.Rows == 0 {
			return insp, preflight.ErrEmptySheet
		}
		warning, err := s.checker.Limits().Check(insp.Dimensions)
		if err != nil {
			insp.Verdict = preflight.Reject
			return insp, err
		}
		if warning != "" {
			insp.Verdict = preflight.Warn
			insp.Warnings = append(insp.Warnings, warning)
		}
		return insp, nil

	case FamilyContainer:
		pre, err := s.checker.CheckContainer(in.Source, in.Size)
		if pre != nil {
			insp.Dimensions = pre.Dimensions
			insp.Archive = pre.Archive
			insp.Verdict = pre.Verdict
			insp.Warnings = pre.Warnings
			if len(pre.Warnings) > 0 && insp.Verdict == preflight.Proceed {
				insp.Verdict = preflight.Warn
			}
		}
		if errors.Is(err, preflight.ErrInputTooLarge) {
			insp.Verdict = preflight.Reject
		}
		return insp, err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, family)
}
