// Package retry runs printer operations with a fixed-delay retry loop.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Policy controls how many times an operation runs and the fixed pause
// between attempts.
type Policy struct {
	Attempts int           // total attempts, minimum 1
	Delay    time.Duration // fixed pause between attempts
}

// DefaultPolicy matches the reconnect discipline receipt printers tolerate
// well in practice: three attempts, one second apart.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Delay:    time.Second,
	}
}

// Do executes op up to p.Attempts times. After every failed attempt it calls
// onFail (the caller's teardown hook, typically a forced disconnect) before
// deciding whether to try again. The error from the final attempt is returned
// unchanged so callers can still match sentinel values with errors.Is.
func Do(ctx context.Context, p Policy, op func() error, onFail func()) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		// The handle is considered dirty after any failure, retryable or not.
		if onFail != nil {
			onFail()
		}

		if IsNonRetryable(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}

	return lastErr
}
