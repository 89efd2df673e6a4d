package cleaner

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// ErrAlreadyProcessing is returned when a run is requested while another
// run holds the session.
var ErrAlreadyProcessing = errors.New("a file is already being processed")

// Guard is the busy flag of a session. Only one holder at a time; a
// second Acquire fails immediately instead of waiting.
type Guard struct {
	name string
	held atomic.Bool
}

// NewGuard creates a released guard with the given name.
func NewGuard(name string) *Guard {
	return &Guard{name: name}
}

// Acquire takes the guard. Returns false if it is already held.
func (g *Guard) Acquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// AcquireOrFail takes the guard or returns ErrAlreadyProcessing.
func (g *Guard) AcquireOrFail() error {
	if !g.Acquire() {
		return fmt.Errorf("%w: %s is busy", ErrAlreadyProcessing, g.name)
	}
	return nil
}

// Release frees the guard. Releasing a free guard is a no-op.
func (g *Guard) Release() {
	g.held.Store(false)
}

// IsHeld reports whether a run currently holds the guard.
func (g *Guard) IsHeld() bool {
	return g.held.Load()
}

// Name returns the guard name.
func (g *Guard) Name() string {
	return g.name
}

// GuardName builds a guard name for a session label.
// Example: GuardName("upload api") → "phoneclean:session:upload_api"
func GuardName(label string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, label)
	if sanitized == "" {
		sanitized = "default"
	}
	return "phoneclean:session:" + sanitized
}
