// Package retry implements exponential backoff with jitter for remote
// calls. The migration only retries statuses the destination documents as
// transient; everything else fails fast so the enclosing reconciler can
// skip the unit and move on.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Config configures retry behavior with exponential backoff.
type Config struct {
	MaxRetries int           // maximum retry attempts after the first try (default: 3)
	BaseDelay  time.Duration // delay before the first retry (default: 1s)
	MaxDelay   time.Duration // cap on any single delay (default: 30s)
	Multiplier float64       // exponential backoff multiplier (default: 2.0)
	Jitter     bool          // add random jitter to prevent thundering herd
}

// DefaultConfig returns a retry configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Do executes op, retrying while retryable reports the returned error as
// transient and attempts remain. It returns the last error, or ctx.Err()
// when cancelled mid-backoff.
func Do(ctx context.Context, cfg Config, op func() error, retryable func(error) bool) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt >= cfg.MaxRetries || !retryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := calculateDelay(cfg, attempt)
		log.Debug().
			Err(lastErr).
			Int("attempt", attempt+1).
			Int("max_retries", cfg.MaxRetries).
			Dur("delay", delay).
			Msg("retrying transient failure")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// calculateDelay computes baseDelay * multiplier^attempt, capped at
// MaxDelay, with up to ±10% jitter when enabled.
func calculateDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))

	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(cfg.BaseDelay)
		}
	}

	return time.Duration(delay)
}
