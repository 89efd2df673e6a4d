// Package pipeline classifies table rows, collects statistics and
// assembles the export shape of one cleaning run.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbsmedya/phoneclean/internal/logger"
	"github.com/dbsmedya/phoneclean/internal/phone"
	"github.com/dbsmedya/phoneclean/internal/types"
)

// Mode selects the shape of the export.
type Mode string

const (
	// ModeFull keeps rows with at least one new number, cleaned in place.
	ModeFull Mode = "full"
	// ModeUnique produces a flat list of first-seen numbers.
	ModeUnique Mode = "unique"
	// ModeMobileName produces one (name, number) pair per first-seen number.
	ModeMobileName Mode = "mobile_name"
	// ModeKeepAll keeps every row, replacing numbers where valid.
	ModeKeepAll Mode = "keep_all"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeFull, ModeUnique, ModeMobileName, ModeKeepAll:
		return m, nil
	}
	return "", fmt.Errorf("unknown export mode %q", s)
}

// Classifier turns a cell into a cleaning outcome. *phone.Validator is the
// production implementation.
type Classifier interface {
	Classify(c types.Cell) phone.Outcome
	Digits(canonical string) string
}

// RowError records a cell whose classification panicked.
type RowError struct {
	Row    int
	Column int
	Cause  interface{}
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d column %d: %v", e.Row, e.Column, e.Cause)
}

// Pair is one mobile_name entry.
type Pair struct {
	Name   string
	Number string
}

// Options configures a run.
type Options struct {
	Mode       Mode
	Columns    []int // selected columns, in priority order
	NameColumn int   // -1 when there is no name column
	Separator  string
	// SampleCapacity bounds each sample bucket; 0 disables sampling.
	SampleCapacity int
	// FastModeRows disables sampling for tables with more data rows.
	// 0 never enables fast mode.
	FastModeRows int
	Pacer        *Pacer
	Progress     func(percent int)
}

// Result is the outcome of a run, ready for export.
type Result struct {
	Mode       Mode
	Header     types.Record // source header, used by full and keep_all
	NameHeader string
	Rows       []types.Record
	Numbers    []string
	Pairs      []Pair
	Stats      RunStats
	Samples    *Collector
	Fast       bool
	RowErrors  int
}

// OutputRows returns the number of body rows the export will have.
func (r *Result) OutputRows() int {
	switch r.Mode {
	case ModeUnique:
		return len(r.Numbers)
	case ModeMobileName:
		return len(r.Pairs)
	default:
		return len(r.Rows)
	}
}

// Pipeline holds the state of one run. It is not reusable: create a new
// Pipeline for every run so statistics and the dedup set start empty.
type Pipeline struct {
	opts       Options
	classifier Classifier
	logger     *logger.Logger

	stats     *Collector
	seen      *DedupSet
	fast      bool
	rowErrors int

	rows    []types.Record
	numbers []string
	pairs   []Pair
}

// New creates a pipeline for one run.
func New(opts Options, cls Classifier, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewDefault()
	}
	if cls == nil {
		cls = phone.DefaultValidator()
	}
	if opts.Mode == "" {
		opts.Mode = ModeFull
	}
	if opts.Separator == "" {
		opts.Separator = ", "
	}
	return &Pipeline{
		opts:       opts,
		classifier: cls,
		logger:     log,
		stats:      NewCollector(opts.SampleCapacity),
		seen:       NewDedupSet(),
	}
}

// EnableFastMode stops sample collection for the rest of the run.
func (p *Pipeline) EnableFastMode() {
	if p.fast {
		return
	}
	p.fast = true
	p.stats.DisableSampling()
	p.logger.Infof("Fast mode enabled: row sampling disabled")
}

// Stats returns the counters so far.
func (p *Pipeline) Stats() RunStats {
	return p.stats.Stats()
}

// Run processes every data row of a materialized table.
func (p *Pipeline) Run(ctx context.Context, t *types.Table) (*Result, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	data := t.DataRows()
	if p.opts.FastModeRows > 0 && len(data) > p.opts.FastModeRows {
		p.EnableFastMode()
	}

	tracker := NewTracker(p.opts.Progress)
	tracker.Report(0)
	total := int64(len(data))

	for i, rec := range data {
		p.ProcessRow(t.HeaderRow+1+i, rec)
		tracker.Update(int64(i+1), total)

		if p.opts.Pacer != nil {
			if err := p.opts.Pacer.Tick(ctx); err != nil {
				return nil, err
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	tracker.Finish()

	return p.Result(t.Header()), nil
}

type hit struct {
	column  int
	numbers []string
}

// ProcessRow classifies one data row and accumulates it into the run.
// row is the record index in the source, used for samples and errors.
// rec may be modified in place for full and keep_all modes.
func (p *Pipeline) ProcessRow(row int, rec types.Record) {
	p.stats.row()

	name := ""
	if p.opts.NameColumn >= 0 {
		name = strings.TrimSpace(rec.Get(p.opts.NameColumn).String())
	}

	var hits []hit
	var found []string
	failed := 0

	for _, col := range p.opts.Columns {
		cell := rec.Get(col)
		out, err := p.classify(row, col, cell)
		if err != nil {
			failed++
			p.rowErrors++
			p.logger.Debugf("Skipping cell: %v", err)
			continue
		}

		switch out.Status {
		case phone.StatusValid:
			hits = append(hits, hit{column: col, numbers: out.Numbers})
			for _, n := range out.Numbers {
				if !containsString(found, n) {
					found = append(found, n)
				}
			}
		case phone.StatusInvalidPattern:
			p.stats.add(CategoryInvalidPattern, 1)
			p.stats.sample(CategoryInvalidPattern, Sample{Row: row, Column: col, Value: cell.String()})
		case phone.StatusInvalidLength:
			p.stats.add(CategoryInvalidLength, 1)
			p.stats.sample(CategoryInvalidLength, Sample{Row: row, Column: col, Value: cell.String()})
		}
	}

	if len(p.opts.Columns) > 0 && failed == len(p.opts.Columns) {
		p.stats.add(CategoryInvalidLength, 1)
		p.stats.sample(CategoryInvalidLength, Sample{Row: row, Column: -1, Value: strings.Join(rec.Strings(), " ")})
		if p.opts.Mode == ModeKeepAll {
			p.rows = append(p.rows, rec)
		}
		return
	}

	if p.opts.Mode == ModeKeepAll {
		p.keepAll(row, rec, hits, found)
		return
	}

	if len(found) == 0 {
		return
	}

	var fresh, dups []string
	for _, n := range found {
		if p.seen.Has(p.classifier.Digits(n)) {
			dups = append(dups, n)
		} else {
			fresh = append(fresh, n)
		}
	}

	if len(fresh) == 0 {
		p.stats.add(CategoryDuplicate, 1)
		for _, n := range dups {
			p.stats.sample(CategoryDuplicate, Sample{Row: row, Column: columnOf(hits, n), Number: n, Value: n})
		}
		return
	}

	for _, n := range fresh {
		p.seen.Add(p.classifier.Digits(n))
		p.stats.sample(CategoryValid, Sample{Row: row, Column: columnOf(hits, n), Number: n, Value: n})
	}
	p.stats.add(CategoryValid, len(fresh))

	switch p.opts.Mode {
	case ModeFull:
		p.replace(&rec, hits)
		if first := p.opts.Columns[0]; !hasColumn(hits, first) {
			rec.Set(first, types.NewText(fresh[0]))
		}
		p.rows = append(p.rows, rec)
	case ModeUnique:
		p.numbers = append(p.numbers, fresh...)
	case ModeMobileName:
		for _, n := range fresh {
			p.pairs = append(p.pairs, Pair{Name: name, Number: n})
		}
	}
}

func (p *Pipeline) keepAll(row int, rec types.Record, hits []hit, found []string) {
	p.replace(&rec, hits)
	for _, n := range found {
		p.stats.sample(CategoryValid, Sample{Row: row, Column: columnOf(hits, n), Number: n, Value: n})
	}
	p.stats.add(CategoryValid, len(found))
	p.rows = append(p.rows, rec)
}

func (p *Pipeline) replace(rec *types.Record, hits []hit) {
	for _, h := range hits {
		rec.Set(h.column, types.NewText(strings.Join(h.numbers, p.opts.Separator)))
	}
}

func (p *Pipeline) classify(row, col int, c types.Cell) (out phone.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RowError{Row: row, Column: col, Cause: r}
		}
	}()
	return p.classifier.Classify(c), nil
}

// Result returns the accumulated output. header is the source header row.
func (p *Pipeline) Result(header types.Record) *Result {
	nameHeader := ""
	if p.opts.NameColumn >= 0 && header != nil {
		nameHeader = strings.TrimSpace(header.Get(p.opts.NameColumn).String())
	}
	if p.rowErrors > 0 {
		p.logger.Warnf("%d cells could not be processed and were skipped", p.rowErrors)
	}
	return &Result{
		Mode:       p.opts.Mode,
		Header:     header,
		NameHeader: nameHeader,
		Rows:       p.rows,
		Numbers:    p.numbers,
		Pairs:      p.pairs,
		Stats:      p.stats.Stats(),
		Samples:    p.stats,
		Fast:       p.fast,
		RowErrors:  p.rowErrors,
	}
}

func columnOf(hits []hit, n string) int {
	for _, h := range hits {
		if containsString(h.numbers, n) {
			return h.column
		}
	}
	return -1
}

func hasColumn(hits []hit, col int) bool {
	for _, h := range hits {
		if h.column == col {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
