package retry

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// Config configures retry behavior
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Retryable decides whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool
}

// DefaultConfig returns 1s, 2s, 4s backoff capped at 10s
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Result contains information about the retry operation
type Result struct {
	Attempts      int
	Success       bool
	TotalDuration time.Duration
	LastError     error
}

type Func func(ctx context.Context, attempt int) error

// WithExponentialBackoff runs fn until it succeeds, returns a non-retryable
// error, exhausts MaxAttempts or ctx is done.
func WithExponentialBackoff(ctx context.Context, op string, config *Config, fn Func) *Result {
	startTime := time.Now()
	result := &Result{}

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			if attempt > 1 {
				zap.L().Info("Operation succeeded after retry",
					zap.String("op", op),
					zap.Int("attempts", attempt),
					zap.Duration("total_duration", result.TotalDuration))
			}
			return result
		}
		result.LastError = err

		if config.Retryable != nil && !config.Retryable(err) {
			break
		}

		if attempt >= config.MaxAttempts {
			zap.L().Error("Operation failed after max retry attempts",
				zap.String("op", op),
				zap.Int("attempts", attempt),
				zap.Error(err))
			break
		}

		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			break
		}

		delay := calculateDelay(config, attempt)
		zap.L().Warn("Operation failed, retrying with exponential backoff",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", config.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		}
	}

	result.TotalDuration = time.Since(startTime)
	return result
}

func calculateDelay(config *Config, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

// Do retries fn and returns its last error unwrapped when all attempts fail
func Do(ctx context.Context, op string, config *Config, fn Func) error {
	result := WithExponentialBackoff(ctx, op, config, fn)
	if !result.Success {
		return result.LastError
	}
	return nil
}
