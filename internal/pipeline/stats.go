package pipeline

// Category is a statistics bucket.
type Category int

const (
	CategoryValid Category = iota
	CategoryDuplicate
	CategoryInvalidPattern
	CategoryInvalidLength
)

// Categories lists every bucket in report order.
var Categories = []Category{CategoryValid, CategoryDuplicate, CategoryInvalidPattern, CategoryInvalidLength}

func (c Category) String() string {
	switch c {
	case CategoryValid:
		return "valid"
	case CategoryDuplicate:
		return "duplicate"
	case CategoryInvalidPattern:
		return "invalid_pattern"
	case CategoryInvalidLength:
		return "invalid_length"
	default:
		return "unknown"
	}
}

// DefaultSampleCapacity bounds each sample bucket when none is configured.
const DefaultSampleCapacity = 10_000

// Sample is one audited cell.
type Sample struct {
	Row    int    // zero-based record index in the source
	Column int    // zero-based column index, -1 for whole-row entries
	Value  string // source cell text
	Number string // canonical number, empty for invalid outcomes
}

// RunStats holds the running counters of one run.
type RunStats struct {
	Total          int
	Valid          int
	Duplicates     int
	InvalidPattern int
	InvalidLength  int
}

// Collector accumulates counters and bounded samples. Once a bucket is
// full further samples for it are dropped; counters are never affected.
type Collector struct {
	stats    RunStats
	capacity int
	sampling bool
	buckets  [4][]Sample
}

// NewCollector creates a collector holding at most capacity samples per
// bucket. A capacity of zero disables sampling entirely.
func NewCollector(capacity int) *Collector {
	if capacity < 0 {
		capacity = DefaultSampleCapacity
	}
	return &Collector{capacity: capacity, sampling: capacity > 0}
}

// DisableSampling stops recording samples for the rest of the run.
func (c *Collector) DisableSampling() {
	c.sampling = false
}

// Sampling reports whether samples are still being recorded.
func (c *Collector) Sampling() bool {
	return c.sampling
}

func (c *Collector) row() {
	c.stats.Total++
}

func (c *Collector) add(cat Category, n int) {
	switch cat {
	case CategoryValid:
		c.stats.Valid += n
	case CategoryDuplicate:
		c.stats.Duplicates += n
	case CategoryInvalidPattern:
		c.stats.InvalidPattern += n
	case CategoryInvalidLength:
		c.stats.InvalidLength += n
	}
}

func (c *Collector) sample(cat Category, s Sample) {
	if !c.sampling {
		return
	}
	if len(c.buckets[cat]) >= c.capacity {
		return
	}
	c.buckets[cat] = append(c.buckets[cat], s)
}

// Stats returns a snapshot of the counters.
func (c *Collector) Stats() RunStats {
	return c.stats
}

// Samples returns the recorded samples of one bucket.
func (c *Collector) Samples(cat Category) []Sample {
	if cat < 0 || int(cat) >= len(c.buckets) {
		return nil
	}
	return c.buckets[cat]
}
