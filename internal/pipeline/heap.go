package pipeline

import (
	"runtime"
	"runtime/debug"

	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/logger"
)

// HeapMonitor watches heap usage at yield points and asks the runtime to
// return memory once usage crosses a ceiling.
type HeapMonitor struct {
	enabled bool
	limit   uint64 // bytes
	logger  *logger.Logger

	readHeap func() uint64
	release  func()
	releases int
}

// NewHeapMonitor creates a heap monitor. A zero heap_limit_mb disables it.
func NewHeapMonitor(cfg config.ProcessingConfig, log *logger.Logger) *HeapMonitor {
	if log == nil {
		log = logger.NewDefault()
	}

	if cfg.HeapLimitMB <= 0 {
		log.Debug("Heap monitoring is DISABLED")
		return &HeapMonitor{enabled: false, logger: log}
	}

	limit := uint64(cfg.HeapLimitMB) << 20
	log.Debugf("Heap monitoring ENABLED (limit: %d MB)", cfg.HeapLimitMB)

	return &HeapMonitor{
		enabled:  true,
		limit:    limit,
		logger:   log,
		readHeap: readHeapAlloc,
		release:  debug.FreeOSMemory,
	}
}

func readHeapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Check reports whether heap usage is within the limit along with the
// current usage in bytes. A disabled monitor always reports true.
func (h *HeapMonitor) Check() (bool, uint64) {
	if !h.enabled {
		return true, 0
	}
	used := h.readHeap()
	return used <= h.limit, used
}

// Relieve releases memory back to the OS when usage is above the limit.
// It returns true if usage is within the limit afterwards.
func (h *HeapMonitor) Relieve() bool {
	ok, used := h.Check()
	if ok {
		return true
	}

	h.logger.Warnf("Heap usage is HIGH: %d MB (limit: %d MB), releasing memory", used>>20, h.limit>>20)
	h.release()
	h.releases++

	ok, used = h.Check()
	if !ok {
		h.logger.Warnf("Heap usage still above limit after release: %d MB", used>>20)
	}
	return ok
}

// IsEnabled returns whether heap monitoring is enabled.
func (h *HeapMonitor) IsEnabled() bool {
	return h.enabled
}

// Limit returns the configured ceiling in bytes.
func (h *HeapMonitor) Limit() uint64 {
	return h.limit
}

// Releases returns how many times memory was released.
func (h *HeapMonitor) Releases() int {
	return h.releases
}
