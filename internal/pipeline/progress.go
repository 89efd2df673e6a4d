package pipeline

// Tracker turns work counts into integer percentages and forwards them
// to a callback. Reported values never decrease.
type Tracker struct {
	fn   func(percent int)
	last int
}

// NewTracker creates a tracker. fn may be nil.
func NewTracker(fn func(percent int)) *Tracker {
	return &Tracker{fn: fn, last: -1}
}

// Report forwards percent if it is above the last reported value.
func (t *Tracker) Report(percent int) {
	if percent > 100 {
		percent = 100
	}
	if percent <= t.last {
		return
	}
	t.last = percent
	if t.fn != nil {
		t.fn(percent)
	}
}

// Update reports done out of total.
func (t *Tracker) Update(done, total int64) {
	if total <= 0 {
		return
	}
	t.Report(int(done * 100 / total))
}

// Finish reports 100.
func (t *Tracker) Finish() {
	t.Report(100)
}

// Percent returns the last reported value, 0 before the first report.
func (t *Tracker) Percent() int {
	if t.last < 0 {
		return 0
	}
	return t.last
}

// Span returns a callback that maps 0..100 onto lo..hi of this tracker.
// It lets consecutive phases share one monotonic scale.
func (t *Tracker) Span(lo, hi int) func(percent int) {
	return func(percent int) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		t.Report(lo + (hi-lo)*percent/100)
	}
}
