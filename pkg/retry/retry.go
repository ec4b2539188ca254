// Package retry repeats failed page requests with backoff.
package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ZUGAZ/likes-to-go/pkg/errors"
	"github.com/ZUGAZ/likes-to-go/pkg/logger"
)

// StatusError is an HTTP response that did not succeed
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%s returned %s", e.URL, status)
}

// Config holds retry configuration
type Config struct {
	// MaxAttempts counts the first try; values below 1 mean a single try
	MaxAttempts int
	Backoff     BackoffStrategy
	// RetryIf defaults to Retryable
	RetryIf func(error) bool
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     Retryable,
	}
}

// IsRetryableStatus reports whether a response with this status may succeed
// when requested again
func IsRetryableStatus(code int) bool {
	switch code {
	case 0, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return false
	default:
		return code >= 500
	}
}

// Retryable is the default retry predicate. Cancellation and input errors
// are final; network errors and transient statuses are retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return IsRetryableStatus(statusErr.Code)
	}

	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation, errors.ErrorTypeConfig:
		return false
	}
	return true
}

// Do runs op until it succeeds, fails with a final error, runs out of
// attempts or ctx is done
func Do(ctx context.Context, op func() error, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = Retryable
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = DefaultExponentialBackoff()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("Request succeeded after retry", map[string]interface{}{"attempt": attempt})
			}
			return nil
		}

		if ctx.Err() != nil || !retryIf(err) {
			return err
		}
		if attempt >= maxAttempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		delay := backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		log.WithError(err).WarnWithFields("Retrying request", map[string]interface{}{
			"attempt":      attempt,
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": maxAttempts,
		})

		if werr := Wait(ctx, delay); werr != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult is Do for operations that return a value
func DoWithResult[T any](ctx context.Context, op func() (T, error), cfg *Config) (T, error) {
	var result T
	err := Do(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	return result, err
}
