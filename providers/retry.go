package providers

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// RetryPolicy defines how transient API failures are retried
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the initial attempt
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter adds up to 20% to each delay
	Jitter bool
}

// DefaultRetryPolicy covers rate limiting and overload responses
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     8 * time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

// APIError is a non-200 response from the messages API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return "API error: status " + strconv.Itoa(e.StatusCode) + ": " + e.Body
}

// statusOverloaded is Anthropic's "overloaded" status
const statusOverloaded = 529

// isRetryable reports whether err is worth another attempt
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
			statusOverloaded:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// retry runs op until it succeeds, fails with a non-retryable error, or the
// policy is exhausted
func retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	err := op(ctx)
	if err == nil || !isRetryable(err) {
		return err
	}

	delay := policy.InitialDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		wait := delay
		if policy.Jitter {
			wait = time.Duration(float64(delay) * (1 + 0.2*rand.Float64()))
		}

		logger.Debug("Retrying Anthropic request",
			"attempt", attempt,
			"maxAttempts", policy.MaxAttempts,
			"delay", wait.String(),
			"previousError", err.Error())

		select {
		case <-ctx.Done():
			return serr.Wrap(ctx.Err(), "retry cancelled", "lastError", err.Error())
		case <-time.After(wait):
		}

		if err = op(ctx); err == nil || !isRetryable(err) {
			return err
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return serr.Wrap(err, "request failed after retries", "attempts", strconv.Itoa(policy.MaxAttempts+1))
}
