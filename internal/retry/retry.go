package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy retries an operation a fixed number of times with a fixed
// delay between attempts.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Do stops retrying immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs op until it succeeds, the attempt budget is spent, a
// permanent error is returned, or the context is canceled. The last
// error is returned annotated with the attempt count.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			var perm *permanentError
			errors.As(err, &perm)
			return perm.err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if p.Delay > 0 {
			select {
			case <-time.After(p.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
