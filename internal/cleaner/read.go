package cleaner

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dbsmedya/phoneclean/internal/container"
	"github.com/dbsmedya/phoneclean/internal/logger"
	"github.com/dbsmedya/phoneclean/internal/pipeline"
	"github.com/dbsmedya/phoneclean/internal/preflight"
	"github.com/dbsmedya/phoneclean/internal/stream"
	"github.com/dbsmedya/phoneclean/internal/types"
)

// scanStats is the outcome of the counting pass over delimited input.
type scanStats struct {
	rows      int
	columns   int
	head      []types.Record
	delimiter byte
}

// scanDelimited counts rows and columns, enforcing the limits as it goes,
// and keeps the first keep records for detection.
func (s *Session) scanDelimited(ctx context.Context, in Input, keep int, pacer *pipeline.Pacer, progress func(int)) (*scanStats, error) {
	limits := s.checker.Limits()
	st := &scanStats{}
	var limitErr error

	r := &stream.Reader{ChunkSize: s.cfg.Processing.ChunkSize, Yielder: pacer, Progress: progress}
	delim, err := r.Records(ctx, in.reader(), in.Size, func(rec []string) bool {
		st.rows++
		if len(rec) > st.columns {
			st.columns = len(rec)
		}
		if limitErr = limits.CheckRows(st.rows); limitErr != nil {
			return false
		}
		if limitErr = limits.CheckColumns(len(rec)); limitErr != nil {
			return false
		}
		if len(st.head) < keep {
			st.head = append(st.head, types.RecordFromStrings(rec))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if limitErr != nil {
		return nil, limitErr
	}
	st.delimiter = delim
	if st.rows == 0 {
		return nil, preflight.ErrEmptySheet
	}
	return st, nil
}

func (s *Session) scanRows(req Request) int {
	n := s.cfg.Detection.ScanRows
	if n <= 0 {
		n = 10
	}
	return req.HeaderRow + 2*n
}

// cleanDelimited streams the input twice: once to size and sample it,
// once to clean it. Only the output rows are kept in memory.
func (s *Session) cleanDelimited(ctx context.Context, in Input, req Request, mode pipeline.Mode,
	pacer *pipeline.Pacer, tracker *pipeline.Tracker, log *logger.Logger) (*job, error) {
	s.setPhase(PhaseRead)
	st, err := s.scanDelimited(ctx, in, s.scanRows(req), pacer, tracker.Span(0, 30))
	if err != nil {
		return nil, err
	}
	log.Debugf("Delimited input: %d rows, %d columns, delimiter %q", st.rows, st.columns, st.delimiter)

	j := &job{}
	warning, err := s.checker.Limits().Check(preflight.Dimensions{Rows: st.rows, Columns: st.columns})
	if err != nil {
		return nil, err
	}
	if warning != "" {
		j.warnings = append(j.warnings, warning)
	}

	sel, err := s.selectColumns(st.head, req)
	if err != nil {
		return nil, err
	}
	j.selection = sel
	header := st.head[sel.HeaderRow]
	if err := (&types.Table{Records: st.head, HeaderRow: sel.HeaderRow, Selected: sel.NumberColumns}).Validate(); err != nil {
		return nil, err
	}

	s.setPhase(PhaseClean)
	p := s.newPipeline(mode, sel, pacer, nil, log)
	dataRows := st.rows - sel.HeaderRow - 1
	if s.cfg.Processing.FastModeRows > 0 && dataRows > s.cfg.Processing.FastModeRows {
		p.EnableFastMode()
		j.warnings = append(j.warnings, fmt.Sprintf("fast mode: %d rows, samples are not collected", dataRows))
	}

	clean := tracker.Span(30, 95)
	index := -1
	var tickErr error
	r := &stream.Reader{ChunkSize: s.cfg.Processing.ChunkSize, Yielder: pacer}
	_, err = r.Records(ctx, in.reader(), in.Size, func(rec []string) bool {
		index++
		if index <= sel.HeaderRow {
			return true
		}
		p.ProcessRow(index, types.RecordFromStrings(rec))
		if dataRows > 0 {
			clean(int(int64(index-sel.HeaderRow) * 100 / int64(dataRows)))
		}
		if tickErr = pacer.Tick(ctx); tickErr != nil {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if tickErr != nil {
		return nil, tickErr
	}

	j.result = p.Result(header)
	return j, nil
}

// cleanContainer decodes the whole workbook, then cleans the table.
func (s *Session) cleanContainer(ctx context.Context, in Input, req Request, mode pipeline.Mode,
	pacer *pipeline.Pacer, tracker *pipeline.Tracker, log *logger.Logger) (*job, error) {
	s.setPhase(PhaseRead)
	data, err := io.ReadAll(in.reader())
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	tracker.Report(5)

	s.setPhase(PhasePreflight)
	pre, err := s.checker.CheckContainer(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	s.setPhase(PhaseRead)
	dec := container.NewDecoder(s.checker.Limits(), log.WithPhase(PhaseRead))
	decoded, err := dec.Decode(ctx, data)
	if err != nil {
		return nil, err
	}
	tracker.Report(20)

	j := &job{warnings: pre.Warnings, repaired: decoded.Repaired}
	if decoded.Repaired {
		j.warnings = append(j.warnings, "the file was damaged and has been repaired")
	}

	t := decoded.Table
	if pre.Dimensions.Rows == 0 {
		warning, err := s.checker.Limits().Check(preflight.Dimensions{Rows: t.Len(), Columns: t.Width()})
		if err != nil {
			return nil, err
		}
		if warning != "" {
			j.warnings = append(j.warnings, warning)
		}
	}

	head := t.Records
	if keep := s.scanRows(req); len(head) > keep {
		head = head[:keep]
	}
	sel, err := s.selectColumns(head, req)
	if err != nil {
		return nil, err
	}
	if err := sel.Apply(t); err != nil {
		return nil, err
	}
	j.selection = sel

	s.setPhase(PhaseClean)
	p := s.newPipeline(mode, sel, pacer, tracker.Span(20, 95), log)
	res, err := p.Run(ctx, t)
	if err != nil {
		return nil, err
	}
	if res.Fast {
		j.warnings = append(j.warnings, fmt.Sprintf("fast mode: %d rows, samples are not collected", len(t.DataRows())))
	}
	j.result = res
	return j, nil
}
