// Package resilience implements the spec's resilience middleware: retry
// with backoff, a model-fallback ladder, and the resilientInvoke
// convenience wrapper (§4.6/§7). The backoff math is the teacher's
// pkg/engine/retry_policy.go (InternalRetryPolicy) kept in spirit —
// constant/linear/exponential strategies, ShouldRetry/GetDelay/Execute —
// generalized here to drive model demotion instead of a bare node retry.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// BackoffStrategy defines how retry delays are calculated.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy defines the retry behavior for resilientInvoke.
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffStrategy BackoffStrategy
	RetryableErrors []string
	OnRetry         func(attempt int, err error)
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		BackoffStrategy: BackoffExponential,
		RetryableErrors: []string{},
	}
}

// NoRetryPolicy returns a policy that doesn't retry.
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// ShouldRetry determines if an error is retryable according to the policy.
func (rp *RetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if len(rp.RetryableErrors) == 0 {
		return true
	}
	errorMsg := err.Error()
	for _, pattern := range rp.RetryableErrors {
		if strings.Contains(errorMsg, pattern) {
			return true
		}
	}
	return false
}

// GetDelay calculates the delay before the next retry based on the attempt number.
func (rp *RetryPolicy) GetDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration
	switch rp.BackoffStrategy {
	case BackoffConstant:
		delay = rp.InitialDelay
	case BackoffLinear:
		delay = rp.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		multiplier := math.Pow(2, float64(attempt-1))
		delay = time.Duration(float64(rp.InitialDelay) * multiplier)
	default:
		delay = rp.InitialDelay
	}

	if delay > rp.MaxDelay {
		delay = rp.MaxDelay
	}
	return delay
}

// Execute runs fn with retry logic, honoring ctx cancellation between
// attempts and during the backoff sleep.
func (rp *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	if rp.MaxAttempts <= 0 {
		rp.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= rp.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("execution cancelled: %w", ctx.Err())
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= rp.MaxAttempts {
			break
		}
		if !rp.ShouldRetry(err) {
			break
		}
		if rp.OnRetry != nil {
			rp.OnRetry(attempt, err)
		}

		delay := rp.GetDelay(attempt)
		if delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("execution cancelled during retry delay: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("all retry attempts failed: %w", lastErr)
}

// IsRetryableError checks if an error is temporary and should be retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var temporaryErr interface{ Temporary() bool }
	if errors.As(err, &temporaryErr) {
		return temporaryErr.Temporary()
	}

	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}

	return true
}
