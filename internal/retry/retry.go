// Package retry wraps single network calls in an exponential backoff policy
// so callers never carry retry loops of their own.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults match the behavior expected of calls against the review service:
// 1s, 2s, 4s, 8s between five attempts, each delay jittered by up to ±20%.
const (
	DefaultInitialDelay  = time.Second
	DefaultMaxDelay      = 30 * time.Second
	DefaultMaxAttempts   = 5
	DefaultRandomization = 0.2
)

// Transient marks an error as retryable. Errors carrying an HTTP status
// implement this in the frameio package; connection-level failures are
// recognized directly by the policy.
type Transient interface {
	Retryable() bool
}

// TransientError is surfaced after the policy exhausts its attempts. It
// wraps the last classified failure unchanged.
type TransientError struct {
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Policy describes one retry-with-backoff strategy. The zero value is not
// usable; construct with NewPolicy.
type Policy struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	MaxAttempts   int
	Randomization float64
}

// NewPolicy returns the default policy.
func NewPolicy() Policy {
	return Policy{
		InitialDelay:  DefaultInitialDelay,
		MaxDelay:      DefaultMaxDelay,
		MaxAttempts:   DefaultMaxAttempts,
		Randomization: DefaultRandomization,
	}
}

// Do invokes op, retrying transient failures with exponential backoff until
// it succeeds, a permanent failure occurs, the context is canceled, or
// MaxAttempts is reached. Permanent failures are returned unchanged on the
// first occurrence; exhausted transient failures are wrapped in a
// *TransientError annotated with the attempt count.
//
// Do does not make op idempotent. A non-idempotent call (folder creation,
// upload) that failed after reaching the server may be repeated.
func (p Policy) Do(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialDelay
	bo.MaxInterval = p.MaxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = p.Randomization
	bo.MaxElapsedTime = 0 // attempts are bounded by MaxAttempts, not wall time
	bo.Reset()

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt >= p.MaxAttempts {
			return &TransientError{Attempts: attempt, Err: lastErr}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bo.NextBackOff()):
		}
	}
}

// IsTransient reports whether err is worth retrying: either it classifies
// itself via the Transient interface, or it is a connection-level failure
// (timeout, reset, unreachable host).
func IsTransient(err error) bool {
	var t Transient
	if errors.As(err, &t) {
		return t.Retryable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
