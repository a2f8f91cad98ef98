package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tailorline/settlement-api/pkg/logger"
)

// RetryableFunc defines a function that can be retried
type RetryableFunc func() error

// RetryConfig holds the configuration for retrying operations
type RetryConfig struct {
	MaxAttempts     int
	BackoffStrategy BackoffStrategy
	Logger          logger.Logger
	RetryableErrors []error // List of errors to retry on
}

// ErrAttemptsExhausted wraps the last error once every attempt has failed
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Retry retries the given function according to the provided configuration.
// The returned error wraps ErrAttemptsExhausted when the attempt budget ran
// out, so callers can tell an exhausted budget from a non-retryable failure.
func Retry(ctx context.Context, fn RetryableFunc, cfg *RetryConfig) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		// Check if context is cancelled
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled by context: %w", ctx.Err())
		default:
		}

		err := fn()

		if err == nil {
			return nil
		}

		lastErr = err

		// Check if error is retryable
		if !isRetryable(err, cfg.RetryableErrors) {
			cfg.Logger.Warn("Non-retryable error encountered, giving up",
				"error", err,
				"attempt", attempt)
			return err
		}

		// Check if this is the last attempt
		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := cfg.BackoffStrategy.NextBackoff(attempt)

		cfg.Logger.Debug("Retrying after error",
			"error", err,
			"attempt", attempt,
			"maxAttempts", cfg.MaxAttempts,
			"backoff", backoff)

		// Wait for backoff period or context cancellation
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled by context during backoff: %w", ctx.Err())
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, cfg.MaxAttempts, lastErr)
}

// isRetryable checks if an error is retryable
func isRetryable(err error, retryableErrors []error) bool {
	// If no specific errors are defined, assume all errors are retryable
	if len(retryableErrors) == 0 {
		return true
	}

	for _, retryableErr := range retryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}

	return false
}
