package waiter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWaiter(t *testing.T, cooldown time.Duration) (*FileWaiter, *time.Time) {
	t.Helper()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	w := NewFileWaiter(filepath.Join(t.TempDir(), "waiter.json"), cooldown)
	w.now = func() time.Time { return now }
	return w, &now
}

func TestFileWaiterUnarmed(t *testing.T) {
	w, _ := newTestWaiter(t, 10*time.Minute)

	assert.True(t, w.IsConfigured())
	assert.False(t, w.IsTooEarly())
	assert.Zero(t, w.SecondsRemaining())
}

func TestFileWaiterGating(t *testing.T) {
	w, now := newTestWaiter(t, 10*time.Minute)

	w.Enable()
	assert.True(t, w.IsTooEarly())
	assert.Equal(t, 600, w.SecondsRemaining())

	*now = now.Add(9 * time.Minute)
	assert.True(t, w.IsTooEarly())
	assert.Equal(t, 60, w.SecondsRemaining())

	*now = now.Add(time.Minute)
	assert.False(t, w.IsTooEarly())
	assert.Zero(t, w.SecondsRemaining())
}

func TestFileWaiterSecondsRemainingRoundsUp(t *testing.T) {
	w, now := newTestWaiter(t, 10*time.Minute)

	w.Enable()
	*now = now.Add(9*time.Minute + 59*time.Second + 500*time.Millisecond)
	assert.Equal(t, 1, w.SecondsRemaining())
}

func TestFileWaiterSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waiter.json")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := NewFileWaiter(path, 10*time.Minute)
	first.now = func() time.Time { return now }
	first.Enable()

	second := NewFileWaiter(path, 10*time.Minute)
	second.now = func() time.Time { return now.Add(5 * time.Minute) }
	assert.True(t, second.IsTooEarly())
}

func TestFileWaiterRemove(t *testing.T) {
	w, _ := newTestWaiter(t, 10*time.Minute)

	w.Enable()
	require.True(t, w.IsTooEarly())

	w.Remove()
	assert.False(t, w.IsTooEarly())
	_, err := os.Stat(w.path)
	assert.True(t, os.IsNotExist(err))

	// Removing again is a no-op
	w.Remove()
}

func TestFileWaiterCorruptStateIsUnarmed(t *testing.T) {
	w, _ := newTestWaiter(t, 10*time.Minute)

	require.NoError(t, os.WriteFile(w.path, []byte("garbage"), 0644))
	assert.False(t, w.IsTooEarly())
	assert.Zero(t, w.SecondsRemaining())
}

func TestNoopAlwaysPasses(t *testing.T) {
	w := Noop{}

	assert.False(t, w.IsConfigured())
	assert.False(t, w.IsTooEarly())
	assert.Zero(t, w.SecondsRemaining())

	w.Enable()
	assert.False(t, w.IsTooEarly(), "a no-op waiter never arms")
	w.Remove()
}
