// Package retry provides a bounded retry loop with exponential backoff.
//
// It replaces open-ended polling such as spinning until a remote pointer
// becomes non-zero:
//
//	cfg := retry.Config{MaxRetries: 20, InitialBackoff: 10 * time.Millisecond, MaxBackoff: time.Second}
//	err := retry.Do(ctx, cfg, func() error {
//	    return checkReady()
//	}, nil)
//	if errors.Is(err, retry.ErrTimeout) {
//	    // gave up
//	}
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrTimeout is wrapped into the error returned by Do once every attempt failed.
var ErrTimeout = errors.New("retry: attempts exhausted")

// Config defines the retry behavior for exponential backoff operations.
//
// The zero value is not usable; MaxRetries and InitialBackoff must be set.
type Config struct {
	// MaxRetries is the maximum number of attempts. Must be greater than 0.
	MaxRetries int

	// InitialBackoff is the wait before the second attempt. Each later
	// attempt doubles it: InitialBackoff * 2^(attempt-1).
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait. Zero means no cap.
	MaxBackoff time.Duration
}

// DefaultConfig waits roughly five seconds in total before giving up.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     12,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     time.Second,
	}
}

// Validate reports whether cfg can drive Do.
func (cfg Config) Validate() error {
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("retry: MaxRetries must be > 0, got %d", cfg.MaxRetries)
	}
	if cfg.InitialBackoff <= 0 {
		return fmt.Errorf("retry: InitialBackoff must be > 0, got %s", cfg.InitialBackoff)
	}
	return nil
}

// ShouldRetryFunc decides if an error is transient. A nil ShouldRetryFunc retries everything.
type ShouldRetryFunc func(error) bool

// Do calls fn until it succeeds, shouldRetry rejects the error, the context is
// done, or cfg.MaxRetries attempts have been made. In the last case the
// returned error wraps both ErrTimeout and the final error from fn.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(Backoff(cfg, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrTimeout, cfg.MaxRetries, lastErr)
}

// Backoff returns the wait applied before the given attempt (1-based).
func Backoff(cfg Config, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	multiplier := math.Pow(2, float64(attempt-1))
	backoff := time.Duration(multiplier * float64(cfg.InitialBackoff))

	if cfg.MaxBackoff > 0 && (backoff > cfg.MaxBackoff || backoff <= 0) {
		backoff = cfg.MaxBackoff
	}
	return backoff
}
