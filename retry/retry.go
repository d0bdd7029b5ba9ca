// Package retry applies a bounded retry policy to network operations.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
}

// Default is three attempts, one second times the attempt count between
// attempts, thirty seconds per attempt.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Proportional(time.Second),
		Timeout:     30 * time.Second,
	}
}

// Proportional waits base multiplied by the attempt number.
func Proportional(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, returns a permanent error, the attempts run
// out, or ctx is done.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = p.attempt(ctx, op)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == attempts {
			break
		}

		if p.Backoff != nil {
			if err := sleep(ctx, p.Backoff(attempt)); err != nil {
				return err
			}
		}
	}

	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

func (p Policy) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return op(attemptCtx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
