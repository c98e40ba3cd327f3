package guard

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewright/pagewright/internal/logging"
)

// fakeClock makes waits instantaneous: each sleep advances the clock by the
// requested duration instead of blocking.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// scriptedProbe returns the queued states in order, repeating the last one
// once the queue is spent.
func scriptedProbe(calls *int, states ...State) ProbeFunc {
	i := 0
	return func(ctx context.Context) (State, error) {
		*calls++
		state := states[i]
		if i < len(states)-1 {
			i++
		}
		return state, nil
	}
}

func quietLogger() *logging.Logger {
	logger := logging.New()
	logger.SetOutput(log.New(&bytes.Buffer{}, "", 0))
	return logger
}

func newTestGuard(probe ProbeFunc, clock *fakeClock, opts ...Option) *Guard {
	base := []Option{
		WithClock(clock.Now, clock.Sleep),
		WithLogger(quietLogger()),
	}
	return New(probe, append(base, opts...)...)
}

func TestGuardRunsImmediatelyWhenIdle(t *testing.T) {
	t.Parallel()

	for _, state := range []State{StateNone, StateComplete, StateUnknown} {
		t.Run(state.String(), func(t *testing.T) {
			t.Parallel()

			calls := 0
			g := newTestGuard(scriptedProbe(&calls, state), newFakeClock())

			ran := false
			err := g.Do(context.Background(), func(ctx context.Context) error {
				ran = true
				return nil
			})

			require.NoError(t, err)
			assert.True(t, ran)
			assert.Equal(t, 1, calls, "idle state needs a single probe")
		})
	}
}

func TestGuardWaitsForDeployment(t *testing.T) {
	t.Parallel()

	calls := 0
	clock := newFakeClock()
	g := newTestGuard(scriptedProbe(&calls, StateInProgress, StateInProgress, StateComplete), clock)

	ran := false
	err := g.Do(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 3, calls)
}

func TestGuardProceedsWhenBudgetSpent(t *testing.T) {
	t.Parallel()

	calls := 0
	clock := newFakeClock()
	start := clock.Now()
	g := newTestGuard(scriptedProbe(&calls, StateInProgress),
		clock, WithInterval(10*time.Millisecond), WithBudget(100*time.Millisecond))

	ran := false
	err := g.Do(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran, "budget exhaustion must degrade to proceeding")
	// One initial probe plus one per interval across the whole budget.
	assert.Equal(t, 11, calls)
	assert.Equal(t, 100*time.Millisecond, clock.Now().Sub(start))
}

func TestGuardProbeErrorMeansProceed(t *testing.T) {
	t.Parallel()

	probe := func(ctx context.Context) (State, error) {
		return StateNone, errors.New("connection refused")
	}
	g := newTestGuard(probe, newFakeClock())

	ran := false
	err := g.Do(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
}

type classifiedProbeError struct {
	class ErrorClass
}

func (e *classifiedProbeError) Error() string     { return "probe rejected" }
func (e *classifiedProbeError) Class() ErrorClass { return e.class }

func TestGuardLogsProbeErrorClass(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New()
	logger.SetOutput(log.New(&buf, "", 0))

	probe := func(ctx context.Context) (State, error) {
		return StateNone, &classifiedProbeError{class: ClassRateLimit}
	}
	g := New(probe, WithLogger(logger))

	err := g.Do(context.Background(), func(ctx context.Context) error { return nil })

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "class=rate_limit")
}

func TestGuardUnclassifiedErrorClass(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ClassOther, classOf(errors.New("plain")))
	assert.Equal(t, ClassAuth, classOf(&classifiedProbeError{class: ClassAuth}))
}

func TestGuardCancelledDuringWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	probe := func(c context.Context) (State, error) {
		calls++
		cancel()
		return StateInProgress, nil
	}

	clock := newFakeClock()
	g := newTestGuard(probe, clock)

	ran := false
	err := g.Do(ctx, func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran, "cancelled wait must not run the action")
	assert.Equal(t, 1, calls)
}

func TestGuardReturnsActionError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("generation failed")
	g := newTestGuard(scriptedProbe(new(int), StateComplete), newFakeClock())

	err := g.Do(context.Background(), func(ctx context.Context) error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
}

func TestGuardIntervalCap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
		want time.Duration
	}{
		{
			name: "defaults keep ten seconds",
			opts: nil,
			want: 10 * time.Second,
		},
		{
			name: "small budget caps interval",
			opts: []Option{WithBudget(50 * time.Second)},
			want: 5 * time.Second,
		},
		{
			name: "oversized interval capped to tenth of budget",
			opts: []Option{WithInterval(60 * time.Second)},
			want: 30 * time.Second,
		},
		{
			name: "non-positive values keep defaults",
			opts: []Option{WithInterval(-1), WithBudget(0)},
			want: 10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New(scriptedProbe(new(int), StateNone), append(tt.opts, WithLogger(quietLogger()))...)
			assert.Equal(t, tt.want, g.Interval())
		})
	}
}

func TestStateStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", StateNone.String())
	assert.Equal(t, "in_progress", StateInProgress.String())
	assert.Equal(t, "complete", StateComplete.String())
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestErrorClassStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "other", ClassOther.String())
	assert.Equal(t, "auth", ClassAuth.String())
	assert.Equal(t, "rate_limit", ClassRateLimit.String())
	assert.Equal(t, "transient", ClassTransient.String())
}

func TestSleepContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
