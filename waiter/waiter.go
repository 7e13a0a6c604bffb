// Package waiter tracks a single "retry not before" timestamp, persisted
// across runs, used to back off after the provider throttles us.
package waiter

import (
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/samber/lo"
)

// Waiter gates instance creation after a throttle response.
//
// The armed state, when present, blocks every creation attempt until the
// cooldown window has elapsed; it is then cleared exactly once, at the start
// of the next attempt, not on every check.
type Waiter interface {
	// IsConfigured reports whether a real backing store is present.
	IsConfigured() bool
	// IsTooEarly reports whether the cooldown window is still running.
	IsTooEarly() bool
	// SecondsRemaining returns the time left in the cooldown window, rounded up.
	SecondsRemaining() int
	// Enable arms the waiter, stamping the current time.
	Enable()
	// Remove clears the armed state. Clearing an unarmed waiter is a no-op.
	Remove()
}

// Noop is the waiter used when none is configured: every gate passes.
type Noop struct{}

var _ Waiter = Noop{}

func (Noop) IsConfigured() bool    { return false }
func (Noop) IsTooEarly() bool      { return false }
func (Noop) SecondsRemaining() int { return 0 }
func (Noop) Enable()               {}
func (Noop) Remove()               {}

// FileWaiter persists the armed timestamp as a small JSON file, so the
// cooldown survives process restarts (the tool typically runs from cron).
//
// The store is eventually consistent: no locking is done, and a concurrent
// process may slip one extra call through between a check and an arm. The
// provider answers that call with another throttle, which re-arms the waiter.
type FileWaiter struct {
	path     string
	cooldown time.Duration
	now      func() time.Time
}

var _ Waiter = (*FileWaiter)(nil)

type state struct {
	ArmedAt time.Time `json:"armedAt"`
}

func NewFileWaiter(path string, cooldown time.Duration) *FileWaiter {
	return &FileWaiter{path: path, cooldown: cooldown, now: time.Now}
}

func (w *FileWaiter) IsConfigured() bool {
	return true
}

func (w *FileWaiter) IsTooEarly() bool {
	armedAt, ok := w.armedAt()
	return ok && w.now().Before(armedAt.Add(w.cooldown))
}

func (w *FileWaiter) SecondsRemaining() int {
	armedAt, ok := w.armedAt()
	if !ok {
		return 0
	}
	remaining := armedAt.Add(w.cooldown).Sub(w.now())
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

func (w *FileWaiter) Enable() {
	// Write failures are deliberately dropped: the waiter is an optimization,
	// losing it must never fail the calling operation.
	_ = os.WriteFile(w.path, lo.Must(json.Marshal(state{ArmedAt: w.now()})), 0644)
}

func (w *FileWaiter) Remove() {
	_ = os.Remove(w.path)
}

func (w *FileWaiter) armedAt() (time.Time, bool) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return time.Time{}, false
	}
	var s state
	if err := json.Unmarshal(data, &s); err != nil || s.ArmedAt.IsZero() {
		return time.Time{}, false
	}
	return s.ArmedAt, true
}
