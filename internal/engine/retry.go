package engine

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"
)

// RetryConfig holds retry configuration for remote calls.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// shouldRetryHealthCheck reports whether a health check status is worth retrying.
func shouldRetryHealthCheck(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// shouldRetryPredict reports whether the remote refused the request before
// processing it. Anything else is final so extraction never runs twice.
func shouldRetryPredict(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable
}

// calculateBackoff returns initialBackoff * 2^attempt capped at MaxBackoff.
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}

// retryWithBackoff calls reqFunc until it returns 200, a non-retryable status
// or the attempts run out. Non-retryable responses are returned unchanged.
func (e *RemoteEngine) retryWithBackoff(ctx context.Context, retryable func(int) bool, reqFunc func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := reqFunc()
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			if !retryable(resp.StatusCode) {
				return resp, nil
			}
			resp.Body.Close()
		}

		if attempt == e.retry.MaxRetries {
			break
		}

		backoff := calculateBackoff(attempt, e.retry)
		e.logger.Warn().
			Int("attempt", attempt+1).
			Int("max_retries", e.retry.MaxRetries).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("Remote request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", e.retry.MaxRetries, lastErr)
}
