package sweeper

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls atomic.Int64
	last  atomic.Value
}

func (f *fakeExpirer) ExpireIntents(now time.Time) int {
	f.calls.Add(1)
	f.last.Store(now)
	return 2
}

func TestSweeper_RunOnce(t *testing.T) {
	exp := &fakeExpirer{}
	s := New(exp, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	fixed := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	assert.Equal(t, 2, s.RunOnce())
	assert.Equal(t, fixed, exp.last.Load())
	assert.Equal(t, DefaultSchedule, s.schedule)
}

func TestSweeper_Scheduled(t *testing.T) {
	exp := &fakeExpirer{}
	s := New(exp, "@every 1s", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool { return exp.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
}

func TestSweeper_BadSchedule(t *testing.T) {
	s := New(&fakeExpirer{}, "not a schedule", nil)
	require.Error(t, s.Start())
}
