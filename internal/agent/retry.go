// Package agent implements the two model-backed agents of the pipeline: the
// Generator, which drafts assessments, and the Critic, which evaluates them
// against a fixed rubric. Both share one retry policy value object instead of
// carrying their own ad hoc retry loops.
package agent

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds local retries of transient and malformed provider
// failures. One value is shared by both agents.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultRetryPolicy matches the pipeline defaults: three attempts with
// exponential backoff capped at eight seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BackoffBase: 500 * time.Millisecond,
		BackoffMax:  8 * time.Second,
	}
}

// Backoff returns the delay before retry number attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BackoffBase << uint(attempt-1)
	if p.BackoffMax > 0 && d > p.BackoffMax {
		d = p.BackoffMax
	}
	return d
}

// Wait sleeps for the attempt's backoff, honoring context cancellation.
func (p RetryPolicy) Wait(ctx context.Context, attempt int) error {
	d := p.Backoff(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExhaustedError reports that an agent ran out of local retry attempts.
// Last holds the failure from the final attempt.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: attempts exhausted after %d tries: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
