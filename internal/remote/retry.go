package remote

import (
	"context"
	"time"
)

// Sleeper waits for d or until ctx is done. Tests inject a recording fake.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff returns the wait before retry n (1-based): initial doubled per
// retry, capped at maxDelay.
func Backoff(n int, initial, maxDelay time.Duration) time.Duration {
	if n < 1 {
		n = 1
	}
	d := initial
	for i := 1; i < n; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return min(d, maxDelay)
}

// retry runs fn up to c.cfg.Retries times, bounding each attempt by
// c.cfg.Timeout and sleeping Backoff between attempts.
func (c *Client) retry(ctx context.Context, endpoint string, fn func(ctx context.Context) error) error {
	attempts := max(1, c.cfg.Retries)
	var last error
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := Backoff(attempt-1, c.cfg.BackoffInitial, c.cfg.BackoffMax)
			c.log.Warn("remote call failed, retrying",
				"endpoint", endpoint, "attempt", attempt-1, "max_attempts", attempts,
				"error", last, "next_delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				break
			}
		}

		made++
		last = c.attempt(ctx, endpoint, fn)
		if last == nil {
			if attempt > 1 {
				c.log.Info("remote call succeeded after retry", "endpoint", endpoint, "attempt", attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return &RemoteServiceError{Endpoint: endpoint, Attempts: made, Last: last}
}

// attempt runs fn once under the per-attempt timeout and records it.
func (c *Client) attempt(ctx context.Context, endpoint string, fn func(ctx context.Context) error) error {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	start := time.Now()
	err := fn(actx)
	took := time.Since(start)
	c.metrics.ObserveRemote(endpoint, err, took)
	c.stats.Record(took, err != nil)
	return err
}
