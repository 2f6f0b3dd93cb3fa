package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Veraticus/tripcost/internal/service"
)

var (
	// ErrRateLimit marks a provider asking us to slow down.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries is wrapped around the last failure once attempts run out.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError tells WithRetry whether a failed attempt is worth repeating.
// Errors without this wrapper are retried. RetryAfter, when positive,
// replaces the backoff delay before the next attempt.
type RetryableError struct {
	Err        error
	RetryAfter time.Duration
	Retryable  bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// RetryAfterHeader parses a Retry-After header given in seconds. Dates and
// garbage yield 0.
func RetryAfterHeader(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

type backoff struct {
	next time.Duration
	max  time.Duration
	mult float64
}

func newBackoff(opts service.RetryOptions) (backoff, int) {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	b := backoff{next: opts.InitialDelay, max: opts.MaxDelay, mult: opts.Multiplier}
	if b.next <= 0 {
		b.next = 100 * time.Millisecond
	}
	if b.max <= 0 {
		b.max = 30 * time.Second
	}
	if b.mult <= 0 {
		b.mult = 2
	}
	return b, attempts
}

// delay returns how long to wait after err and advances the schedule.
func (b *backoff) delay(err error) time.Duration {
	wait := b.next
	b.next = min(time.Duration(float64(b.next)*b.mult), b.max)

	var re *RetryableError
	switch {
	case errors.As(err, &re) && re.RetryAfter > 0:
		return min(re.RetryAfter, b.max)
	case errors.Is(err, ErrRateLimit):
		return b.max
	}
	return wait
}

// WithRetry runs operation until it succeeds, returns a non-retryable
// error, the context ends, or the attempts in opts are used up.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	b, attempts := newBackoff(opts)

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		var re *RetryableError
		if errors.As(err, &re) && !re.Retryable {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempts, err)
		}

		wait := b.delay(err)
		slog.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
