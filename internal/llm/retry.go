// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/logging"
)

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

type retrying struct {
	inner      Completer
	maxRetries int
	timeout    time.Duration
	logger     *zap.Logger
}

// WithRetry retries failed completions with exponential backoff. Each
// attempt runs under its own timeout when timeout is positive.
func WithRetry(inner Completer, maxRetries int, timeout time.Duration, logger *zap.Logger) Completer {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &retrying{inner: inner, maxRetries: maxRetries, timeout: timeout, logger: logging.OrNop(logger)}
}

func (r *retrying) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			r.logger.Debug("retrying completion", zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := r.attempt(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}
	return "", fmt.Errorf("completion failed: %w", lastErr)
}

func (r *retrying) attempt(ctx context.Context, prompt string, opts Options) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.inner.Complete(ctx, prompt, opts)
}

// retryable reports false for client errors that repeating cannot fix.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.Code)
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return retryableStatus(ae.StatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
