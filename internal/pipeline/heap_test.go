package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/logger"
)

func TestNewHeapMonitor_Disabled(t *testing.T) {
	h := NewHeapMonitor(config.ProcessingConfig{}, logger.NewNop())
	require.NotNil(t, h)
	assert.False(t, h.IsEnabled())

	ok, used := h.Check()
	assert.True(t, ok)
	assert.Zero(t, used)
	assert.True(t, h.Relieve())
}

func TestNewHeapMonitor_Enabled(t *testing.T) {
	h := NewHeapMonitor(config.ProcessingConfig{HeapLimitMB: 64}, nil)
	assert.True(t, h.IsEnabled())
	assert.Equal(t, uint64(64<<20), h.Limit())
	assert.NotNil(t, h.logger)
}

func TestHeapMonitor_Relieve(t *testing.T) {
	h := NewHeapMonitor(config.ProcessingConfig{HeapLimitMB: 1}, logger.NewNop())

	usage := []uint64{4 << 20, 512 << 10}
	h.readHeap = func() uint64 {
		v := usage[0]
		if len(usage) > 1 {
			usage = usage[1:]
		}
		return v
	}
	released := 0
	h.release = func() { released++ }

	assert.True(t, h.Relieve())
	assert.Equal(t, 1, released)
	assert.Equal(t, 1, h.Releases())

	assert.True(t, h.Relieve(), "below the limit now")
	assert.Equal(t, 1, released)
}

func TestHeapMonitor_StillHigh(t *testing.T) {
	h := NewHeapMonitor(config.ProcessingConfig{HeapLimitMB: 1}, logger.NewNop())
	h.readHeap = func() uint64 { return 8 << 20 }
	h.release = func() {}

	assert.False(t, h.Relieve())
}

func TestPacerConsultsHeapMonitor(t *testing.T) {
	h := NewHeapMonitor(config.ProcessingConfig{HeapLimitMB: 1}, logger.NewNop())
	h.readHeap = func() uint64 { return 8 << 20 }
	h.release = func() {}

	cfg := config.DefaultConfig().Processing
	cfg.BatchSize = 1
	p := NewPacer(cfg, GoschedYielder{}, h, logger.NewNop())
	require.NoError(t, p.Yield(t.Context()))
	assert.Equal(t, 1, h.Releases())
}
