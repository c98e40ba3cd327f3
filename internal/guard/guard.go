// Package guard serializes generation runs against an externally observed
// deployment. The resource being protected is shared across processes, so
// the guard polls an external status probe instead of taking a local lock.
// When the wait budget runs out or the probe is unreliable it proceeds
// anyway: overlapping with a deployment is recoverable, a permanently
// stalled pipeline is not.
package guard

import (
	"context"
	"errors"
	"time"

	"github.com/pagewright/pagewright/internal/logging"
)

// State is a point-in-time view of the external deployment.
type State int

const (
	// StateNone means no deployment has been observed.
	StateNone State = iota
	// StateInProgress means a deployment is currently running.
	StateInProgress
	// StateComplete means the most recent deployment finished.
	StateComplete
	// StateUnknown means the probe could not determine the state. Treated
	// as not-in-progress so a flaky probe never blocks the pipeline.
	StateUnknown
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateInProgress:
		return "in_progress"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ProbeFunc reports the current deployment state. The guard may call it
// many times during one wait, so it must be safe to invoke repeatedly.
type ProbeFunc func(ctx context.Context) (State, error)

// ErrorClass labels a probe failure for logging. Every class is handled the
// same way: the failure is logged and the state treated as unknown.
type ErrorClass int

const (
	// ClassOther is an unclassified probe failure.
	ClassOther ErrorClass = iota
	// ClassAuth is an authentication or permission failure.
	ClassAuth
	// ClassRateLimit is an API rate limit rejection.
	ClassRateLimit
	// ClassTransient is a network or server error likely to clear on retry.
	ClassTransient
)

// String returns a human-readable class name.
func (c ErrorClass) String() string {
	switch c {
	case ClassAuth:
		return "auth"
	case ClassRateLimit:
		return "rate_limit"
	case ClassTransient:
		return "transient"
	default:
		return "other"
	}
}

// ClassifiedError lets probes label failures for the guard's logs.
type ClassifiedError interface {
	error
	Class() ErrorClass
}

// Defaults for the wait loop.
const (
	// DefaultInterval is the pause between probe calls while waiting.
	DefaultInterval = 10 * time.Second
	// DefaultBudget bounds the total time spent waiting before the guard
	// gives up and proceeds.
	DefaultBudget = 5 * time.Minute
)

// Guard wraps an action with wait-then-proceed semantics around a probe.
type Guard struct {
	probe    ProbeFunc
	interval time.Duration
	budget   time.Duration
	log      *logging.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option customizes a Guard.
type Option func(*Guard)

// WithInterval sets the pause between probes. Non-positive values keep the
// default.
func WithInterval(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithBudget sets the total wait budget. Non-positive values keep the
// default.
func WithBudget(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.budget = d
		}
	}
}

// WithLogger sets the guard's logger.
func WithLogger(log *logging.Logger) Option {
	return func(g *Guard) {
		if log != nil {
			g.log = log
		}
	}
}

// WithClock replaces the time source and sleep function, for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// New creates a Guard polling the given probe. The polling interval is
// capped at a tenth of the budget so a wait always observes the probe a
// useful number of times before giving up.
func New(probe ProbeFunc, opts ...Option) *Guard {
	g := &Guard{
		probe:    probe,
		interval: DefaultInterval,
		budget:   DefaultBudget,
		log:      logging.Default(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	if max := g.budget / 10; g.interval > max {
		g.interval = max
	}
	return g
}

// Interval reports the effective polling interval after capping.
func (g *Guard) Interval() time.Duration {
	return g.interval
}

// Do waits until no deployment appears to be in progress, then runs action
// exactly once and returns its error unchanged. The wait is bounded by the
// guard's budget; if the deployment is still running when the budget is
// spent, the action runs anyway. Cancelling ctx during the wait returns the
// context error without running the action.
func (g *Guard) Do(ctx context.Context, action func(ctx context.Context) error) error {
	if g.observe(ctx) == StateInProgress {
		if err := g.waitForDeployment(ctx); err != nil {
			return err
		}
	}
	return action(ctx)
}

// waitForDeployment polls until the deployment leaves StateInProgress or
// the budget is spent. Only ctx cancellation produces an error.
func (g *Guard) waitForDeployment(ctx context.Context) error {
	g.log.Info("deployment in progress, waiting",
		"interval", g.interval, "budget", g.budget)

	deadline := g.now().Add(g.budget)
	for g.now().Before(deadline) {
		if err := g.sleep(ctx, g.interval); err != nil {
			return err
		}

		if state := g.observe(ctx); state != StateInProgress {
			g.log.Info("deployment finished, proceeding", "state", state)
			return nil
		}
	}

	g.log.Warn("deployment wait budget spent, proceeding anyway",
		"budget", g.budget)
	return nil
}

// observe calls the probe once, mapping failures to StateUnknown.
func (g *Guard) observe(ctx context.Context) State {
	state, err := g.probe(ctx)
	if err != nil {
		g.log.Warn("deployment probe failed, treating state as unknown",
			"class", classOf(err), "error", err)
		return StateUnknown
	}
	return state
}

func classOf(err error) ErrorClass {
	var classified ClassifiedError
	if errors.As(err, &classified) {
		return classified.Class()
	}
	return ClassOther
}

// sleepContext pauses for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
