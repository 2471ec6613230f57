package bidding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sweepFunc func(ctx context.Context) (int, error)

func (f sweepFunc) SweepExpiredAuctions(ctx context.Context) (int, error) { return f(ctx) }

type refusingLocker struct{ err error }

func (l refusingLocker) TryLock(context.Context, string, time.Duration) (func(context.Context), bool, error) {
	return nil, false, l.err
}

func TestSweeper_Tick(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sweep  sweepFunc
		locker refusingLocker
		locked bool
		want   int
	}{
		{
			name:  "closes",
			sweep: func(context.Context) (int, error) { return 3, nil },
			want:  3,
		},
		{
			name:  "partial_failure_reports_progress",
			sweep: func(context.Context) (int, error) { return 2, errors.New("one auction failed") },
			want:  2,
		},
		{
			name:  "panic_is_contained",
			sweep: func(context.Context) (int, error) { panic("nil map") },
			want:  0,
		},
		{
			name:   "lock_held_elsewhere",
			sweep:  func(context.Context) (int, error) { t.Error("sweep must not run without the lock"); return 0, nil },
			locked: true,
			want:   0,
		},
		{
			name:   "lock_backend_down",
			sweep:  func(context.Context) (int, error) { t.Error("sweep must not run without the lock"); return 0, nil },
			locker: refusingLocker{err: errors.New("redis: connection refused")},
			locked: true,
			want:   0,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := NewSweeper(tc.sweep, time.Minute, nil)
			if tc.locked {
				s = NewSweeper(tc.sweep, time.Minute, tc.locker)
			}

			var got int
			require.NotPanics(t, func() { got = s.Tick(context.Background()) })
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := NewSweeper(sweepFunc(func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			panic("first tick blows up")
		}
		return 0, nil
	}), 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond,
		"the loop survives a panicking tick")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
