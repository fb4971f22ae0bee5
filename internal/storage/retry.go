package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcoot/teamprogress/internal/model"
)

// ErrRetriesExhausted is returned when every attempt hit a conflict
var ErrRetriesExhausted = errors.New("transaction retries exhausted")

// retryBackoff is the base delay between attempts; it grows linearly
const retryBackoff = 2 * time.Millisecond

// WithRetry runs fn until it returns something other than ErrTxConflict,
// at most maxAttempts times.
func WithRetry(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if !errors.Is(err, ErrTxConflict) {
			return err
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
	}
	return ErrRetriesExhausted
}

// Limits bounds a transactional operation in time and attempts
type Limits struct {
	Timeout     time.Duration
	MaxAttempts int
}

// DefaultLimits returns the limits used when none are configured
func DefaultLimits() Limits {
	return Limits{
		Timeout:     5 * time.Second,
		MaxAttempts: 10,
	}
}

// RunBounded runs fn under WithRetry with a deadline. A deadline hit is
// reported as model.ErrTxTimeout and exhaustion as model.ErrInternal, so
// callers get a coded error either way.
func RunBounded(ctx context.Context, limits Limits, fn func(ctx context.Context) error) error {
	if limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.Timeout)
		defer cancel()
	}

	err := WithRetry(ctx, limits.MaxAttempts, fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", model.ErrTxTimeout, err)
	case errors.Is(err, ErrRetriesExhausted):
		return fmt.Errorf("%w: %w", model.ErrInternal, err)
	}
	return err
}
