package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/pagewright/pagewright/internal/logging"
)

// Retry defaults.
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 2 * time.Second
)

// RetryClient decorates a Client with bounded retries and exponential
// backoff. Completion requests are idempotent from the pipeline's point of
// view, so retrying a failed call is always safe.
type RetryClient struct {
	inner    Client
	attempts int
	delay    time.Duration
	log      *logging.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetryClient wraps inner with up to attempts tries, doubling delay
// between them. Non-positive arguments use the defaults.
func NewRetryClient(inner Client, attempts int, delay time.Duration, log *logging.Logger) *RetryClient {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	if log == nil {
		log = logging.Default()
	}
	return &RetryClient{
		inner:    inner,
		attempts: attempts,
		delay:    delay,
		log:      log,
		sleep:    sleepContext,
	}
}

// Complete implements Client, retrying transport failures. The last error
// is wrapped with the attempt count; ctx cancellation stops the backoff
// immediately.
func (c *RetryClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	var lastErr error
	wait := c.delay

	for attempt := 1; attempt <= c.attempts; attempt++ {
		out, err := c.inner.Complete(ctx, prompt, temperature)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == c.attempts {
			break
		}
		c.log.Warn("completion failed, retrying",
			"attempt", attempt, "of", c.attempts, "error", err)
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
		wait *= 2
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", c.attempts, lastErr)
}

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
