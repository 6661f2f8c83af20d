package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable is returned when the engine cannot be reached after
	// bounded retries.
	ErrUnavailable = errors.New("engine unavailable")

	// ErrTimeout is returned when an engine call exceeds its deadline.
	ErrTimeout = errors.New("engine timeout")
)

const (
	transientAttempts = 3
	transientBackoff  = 250 * time.Millisecond
)

// retryTransient runs fn up to transientAttempts times with doubling backoff,
// retrying only errors classify() marks transient. The final failure is
// wrapped in ErrUnavailable. Context cancellation stops immediately.
func retryTransient(ctx context.Context, fn func() error, transient func(error) bool) error {
	delay := transientBackoff
	var last error
	for attempt := 0; attempt < transientAttempts; attempt++ {
		last = fn()
		if last == nil {
			return nil
		}
		if !transient(last) {
			return last
		}
		if attempt == transientAttempts-1 {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, last)
}

// mapDeadline rewrites a deadline expiry into ErrTimeout so callers see the
// taxonomy error rather than a raw context error. The caller's own
// cancellation passes through untouched.
func mapDeadline(callCtx, callerCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && callerCtx.Err() == nil && callCtx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
