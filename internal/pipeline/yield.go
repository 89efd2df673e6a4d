package pipeline

import (
	"context"
	"runtime"
	"time"

	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/logger"
)

// Yielder is a cooperative yield point. Implementations return the
// context error once the run has been cancelled.
type Yielder interface {
	Yield(ctx context.Context) error
}

// YieldFunc adapts a function to the Yielder interface.
type YieldFunc func(ctx context.Context) error

// Yield calls f.
func (f YieldFunc) Yield(ctx context.Context) error {
	return f(ctx)
}

// GoschedYielder hands the processor to other goroutines.
type GoschedYielder struct{}

// Yield checks for cancellation and calls runtime.Gosched.
func (GoschedYielder) Yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runtime.Gosched()
	return nil
}

// SleepYielder pauses for a fixed duration at every yield point.
type SleepYielder struct {
	Duration time.Duration
}

// Yield sleeps for Duration or until ctx is done.
func (y SleepYielder) Yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if y.Duration <= 0 {
		runtime.Gosched()
		return nil
	}
	t := time.NewTimer(y.Duration)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// YielderFor returns the yielder matching the processing settings: a
// SleepYielder when a pause is configured, GoschedYielder otherwise.
func YielderFor(cfg config.ProcessingConfig) Yielder {
	if d := cfg.Sleep(); d > 0 {
		return SleepYielder{Duration: d}
	}
	return GoschedYielder{}
}

// Pacer decides when a row loop reaches a yield point: after every batch
// of rows or once the time budget since the last yield is spent,
// whichever comes first.
type Pacer struct {
	batchSize int
	budget    time.Duration
	yielder   Yielder
	heap      *HeapMonitor
	logger    *logger.Logger

	pending int
	last    time.Time
	yields  int
	now     func() time.Time
}

// NewPacer creates a pacer from the processing settings. A nil yielder
// selects YielderFor(cfg); a nil heap monitor disables heap checks.
func NewPacer(cfg config.ProcessingConfig, y Yielder, heap *HeapMonitor, log *logger.Logger) *Pacer {
	if log == nil {
		log = logger.NewDefault()
	}
	if y == nil {
		y = YielderFor(cfg)
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 2000
	}
	budget := cfg.YieldBudget()
	if budget <= 0 {
		budget = 40 * time.Millisecond
	}
	return &Pacer{
		batchSize: batch,
		budget:    budget,
		yielder:   y,
		heap:      heap,
		logger:    log,
		now:       time.Now,
	}
}

// Yielder returns the yield point used by the pacer.
func (p *Pacer) Yielder() Yielder {
	return p.yielder
}

// Tick records one processed row and yields when a batch or the time
// budget is complete.
func (p *Pacer) Tick(ctx context.Context) error {
	if p.last.IsZero() {
		p.last = p.now()
	}
	p.pending++
	if p.pending < p.batchSize && p.now().Sub(p.last) < p.budget {
		return nil
	}
	return p.Yield(ctx)
}

// Yield forces a yield point and restarts the batch and budget.
func (p *Pacer) Yield(ctx context.Context) error {
	p.pending = 0
	p.yields++
	if p.heap != nil {
		p.heap.Relieve()
	}
	err := p.yielder.Yield(ctx)
	p.last = p.now()
	if err != nil {
		p.logger.Warnf("Processing interrupted at yield point %d: %v", p.yields, err)
	}
	return err
}

// Yields returns how many yield points were reached.
func (p *Pacer) Yields() int {
	return p.yields
}
