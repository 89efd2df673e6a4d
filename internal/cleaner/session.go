// Package cleaner runs one cleaning job end to end: read, preflight,
// detect, clean, export and verify. A Session allows a single active run.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/detect"
	"github.com/dbsmedya/phoneclean/internal/export"
	"github.com/dbsmedya/phoneclean/internal/logger"
	"github.com/dbsmedya/phoneclean/internal/phone"
	"github.com/dbsmedya/phoneclean/internal/pipeline"
	"github.com/dbsmedya/phoneclean/internal/preflight"
	"github.com/dbsmedya/phoneclean/internal/types"
	"github.com/dbsmedya/phoneclean/internal/verifier"
)

// ErrEmptySelection is returned when no number column could be detected
// or selected.
var ErrEmptySelection = errors.New("no phone number column selected")

// Processing phases reported by State.
const (
	PhaseIdle      = "idle"
	PhaseRead      = "read"
	PhasePreflight = "preflight"
	PhaseClean     = "clean"
	PhaseExport    = "export"
	PhaseVerify    = "verify"
)

// Request holds the per-run choices of the caller.
type Request struct {
	Mode       pipeline.Mode // empty uses export.mode from configuration
	Columns    []string      // number columns by header name, letter or 1-based index; empty detects
	NameColumn string        // name column reference; empty detects
	HeaderRow  int           // 1-based header row; 0 detects
	Reports    bool          // also build the four audit reports
	Progress   func(percent int)
}

// RunResult is everything a host needs after a successful run.
type RunResult struct {
	RunID        string
	Input        string
	Mode         pipeline.Mode
	Output       *export.Output
	Reports      []*export.Output
	Stats        pipeline.RunStats
	Samples      *pipeline.Collector
	Selection    detect.Selection
	Header       []string
	Warnings     []string
	Repaired     bool
	Fast         bool
	RowErrors    int
	Yields       int
	Verification *verifier.VerifyResult
	StartedAt    time.Time
	Duration     time.Duration
}

// State is a snapshot of what the session is doing.
type State struct {
	Busy      bool
	RunID     string
	Input     string
	Phase     string
	Percent   int
	StartedAt time.Time
}

// Session owns the configuration and the busy guard shared by runs. All
// per-run state (statistics, dedup set, progress) is created inside a run
// and dropped when it ends, whether it succeeded or not.
type Session struct {
	cfg       *config.Config
	logger    *logger.Logger
	guard     *Guard
	checker   *preflight.Checker
	validator *phone.Validator
	composer  *export.Composer

	mu       sync.Mutex
	strategy detect.Strategy
	state    State
}

// NewSession creates a session for the given configuration.
func NewSession(cfg *config.Config, log *logger.Logger) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	if _, err := pipeline.ParseMode(cfg.Export.Mode); err != nil {
		return nil, err
	}

	v := phone.NewValidator(cfg.Number)
	return &Session{
		cfg:       cfg,
		logger:    log,
		guard:     NewGuard(GuardName("default")),
		checker:   preflight.NewChecker(cfg.Limits, log),
		validator: v,
		composer:  export.NewComposer(cfg.Export, log),
		strategy:  detect.NewKeyword(cfg.Detection, v),
		state:     State{Phase: PhaseIdle},
	}, nil
}

// SetStrategy replaces the column detection strategy.
func (s *Session) SetStrategy(st detect.Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategy = st
}

// Busy reports whether a run is active.
func (s *Session) Busy() bool {
	return s.guard.IsHeld()
}

// State returns a snapshot of the current run.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Busy = s.guard.IsHeld()
	return st
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Clean runs a full cleaning job on in. It fails with
// ErrAlreadyProcessing, without side effects, if another run is active.
func (s *Session) Clean(ctx context.Context, in Input, req Request) (*RunResult, error) {
	if err := s.guard.AcquireOrFail(); err != nil {
		return nil, err
	}
	defer s.guard.Release()

	runID := uuid.NewString()
	started := time.Now()
	log := s.logger.WithRun(runID)
	s.begin(runID, in.Name, started)
	defer s.reset()

	log.Infow("Starting cleaning run",
		"input", in.Name,
		"size", in.Size,
	)

	res, err := s.run(ctx, in, req, log)
	if err != nil {
		log.Errorf("Cleaning run failed: %v", err)
		return nil, err
	}

	res.RunID = runID
	res.StartedAt = started
	res.Duration = time.Since(started)

	log.Infow("Cleaning run completed",
		"rows", res.Stats.Total,
		"valid", res.Stats.Valid,
		"duplicates", res.Stats.Duplicates,
		"invalid_pattern", res.Stats.InvalidPattern,
		"invalid_length", res.Stats.InvalidLength,
		"output", res.Output.FileName,
		"duration", res.Duration,
	)
	return res, nil
}

func (s *Session) run(ctx context.Context, in Input, req Request, log *logger.Logger) (*RunResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = pipeline.Mode(s.cfg.Export.Mode)
	}
	mode, err := pipeline.ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	family, err := in.family()
	if err != nil {
		return nil, err
	}

	s.setPhase(PhasePreflight)
	if err := s.checker.CheckFile(in.Size); err != nil {
		return nil, err
	}

	tracker := pipeline.NewTracker(s.progress(req.Progress))
	tracker.Report(0)
	heap := pipeline.NewHeapMonitor(s.cfg.Processing, log)
	pacer := pipeline.NewPacer(s.cfg.Processing, nil, heap, log)

	var j *job
	switch family {
	case FamilyDelimited:
		j, err = s.cleanDelimited(ctx, in, req, mode, pacer, tracker, log)
	case FamilyContainer:
		j, err = s.cleanContainer(ctx, in, req, mode, pacer, tracker, log)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, family)
	}
	if err != nil {
		return nil, err
	}

	s.setPhase(PhaseExport)
	out, err := s.composer.Compose(j.result, in.Name)
	if err != nil {
		return nil, err
	}
	tracker.Report(97)
	if out.FellBack {
		j.warnings = append(j.warnings, "XLSX export failed, the output was written as CSV")
	}

	s.setPhase(PhaseVerify)
	vr, err := s.verify(ctx, j.result, out, log)
	if err != nil {
		return nil, err
	}

	res := &RunResult{
		Input:        in.Name,
		Mode:         mode,
		Output:       out,
		Stats:        j.result.Stats,
		Samples:      j.result.Samples,
		Selection:    j.selection,
		Header:       j.result.Header.Strings(),
		Warnings:     j.warnings,
		Repaired:     j.repaired,
		Fast:         j.result.Fast,
		RowErrors:    j.result.RowErrors,
		Yields:       pacer.Yields(),
		Verification: vr,
	}

	if req.Reports {
		for _, r := range export.Reports(j.result.Samples) {
			ro, err := export.ComposeReport(r, in.Name)
			if err != nil {
				return nil, err
			}
			res.Reports = append(res.Reports, ro)
		}
	}

	tracker.Finish()
	return res, nil
}

func (s *Session) verify(ctx context.Context, res *pipeline.Result, out *export.Output, log *logger.Logger) (*verifier.VerifyResult, error) {
	v, err := verifier.NewVerifier(verifier.VerificationMethod(s.cfg.Verification.Method), log.WithPhase(PhaseVerify))
	if err != nil {
		return nil, err
	}
	return v.Verify(ctx, export.Build(res), out)
}

// job is the state handed from a reader path to export.
type job struct {
	result    *pipeline.Result
	selection detect.Selection
	warnings  []string
	repaired  bool
}

func (s *Session) newPipeline(mode pipeline.Mode, sel detect.Selection, pacer *pipeline.Pacer, progress func(int), log *logger.Logger) *pipeline.Pipeline {
	return pipeline.New(pipeline.Options{
		Mode:           mode,
		Columns:        sel.NumberColumns,
		NameColumn:     sel.NameColumn,
		Separator:      s.cfg.Export.Separator,
		SampleCapacity: s.cfg.Processing.SampleCapacity,
		FastModeRows:   s.cfg.Processing.FastModeRows,
		Pacer:          pacer,
		Progress:       progress,
	}, s.validator, log.WithPhase(PhaseClean))
}

// selectColumns resolves the header row, the number columns and the name
// column from the request, detecting whatever the request leaves open.
func (s *Session) selectColumns(rows []types.Record, req Request) (detect.Selection, error) {
	s.mu.Lock()
	strategy := s.strategy
	s.mu.Unlock()

	sel := strategy.Detect(rows)
	if req.HeaderRow > 0 {
		if req.HeaderRow > len(rows) {
			return sel, fmt.Errorf("%w: row %d (scanned %d rows)", types.ErrHeaderOutOfRange, req.HeaderRow, len(rows))
		}
		if sel.HeaderRow != req.HeaderRow-1 {
			sel = strategy.Detect(rows[req.HeaderRow-1:])
			sel.HeaderRow = req.HeaderRow - 1
		}
	}
	if sel.HeaderRow < 0 {
		return sel, fmt.Errorf("%w: no header row found", ErrEmptySelection)
	}

	header := rows[sel.HeaderRow]
	if len(req.Columns) > 0 {
		cols, err := detect.ResolveColumns(header, req.Columns)
		if err != nil {
			return sel, err
		}
		sel.NumberColumns = cols
	}
	if req.NameColumn != "" {
		cols, err := detect.ResolveColumns(header, []string{req.NameColumn})
		if err != nil {
			return sel, err
		}
		if len(cols) > 0 {
			sel.NameColumn = cols[0]
		}
	}
	if len(sel.NumberColumns) == 0 {
		return sel, ErrEmptySelection
	}
	return sel, nil
}

func (s *Session) begin(runID, input string, started time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{RunID: runID, Input: input, Phase: PhaseRead, StartedAt: started}
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Phase: PhaseIdle}
}

func (s *Session) setPhase(phase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Phase = phase
}

func (s *Session) progress(fn func(int)) func(int) {
	return func(percent int) {
		s.mu.Lock()
		s.state.Percent = percent
		s.mu.Unlock()
		if fn != nil {
			fn(percent)
		}
	}
}
