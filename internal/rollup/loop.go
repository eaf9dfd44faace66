package rollup

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Modern-Society-Labs/lcore-node/internal/dispatch"
)

// RetryConfig configures backoff for transient coordinator failures.
type RetryConfig struct {
	// InitialDelay is the delay before the first retry. Default: 1s
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries. Default: 30s
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier applied after each retry. Default: 2.0
	Multiplier float64

	// MaxAttempts is the maximum number of attempts (including first try). Default: 10
	MaxAttempts int

	// Jitter is the random factor (0-1) added to delay. Default: 0.1
	Jitter float64
}

// DefaultRetryConfig returns a RetryConfig with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  10,
		Jitter:       0.1,
	}
}

// Loop runs the sequential coordinator processing loop. One instruction is
// fully processed through accept/reject before the next is requested; the
// outcome of dispatch N is the status posted by finish N+1, threaded as an
// explicit value rather than ambient state.
type Loop struct {
	client     *Client
	dispatcher *dispatch.Dispatcher
	retry      RetryConfig
	logger     *slog.Logger
}

// NewLoop creates the processing loop.
func NewLoop(client *Client, dispatcher *dispatch.Dispatcher, retry RetryConfig, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Loop{client: client, dispatcher: dispatcher, retry: retry, logger: logger}
}

// Run polls the coordinator until the context is cancelled or the
// coordinator becomes unreachable past the retry budget. The returned error
// is fatal; request-level failures never surface here, they resolve to
// reject inside the dispatcher.
func (l *Loop) Run(ctx context.Context) error {
	status := dispatch.StatusAccept

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req *dispatch.Request
		err := l.withRetry(ctx, func() error {
			var err error
			req, err = l.client.Finish(ctx, status)
			return err
		})
		if err != nil {
			return err
		}

		if req == nil {
			// No pending work; re-poll immediately.
			continue
		}

		result := l.dispatcher.Dispatch(*req)
		l.logger.Debug("instruction processed", "request_type", req.RawKind, "status", string(result.Status))

		for _, report := range result.Reports {
			if err := l.withRetry(ctx, func() error {
				return l.client.Report(ctx, report)
			}); err != nil {
				return err
			}
		}

		status = result.Status
	}
}

// withRetry runs fn with exponential backoff on coordinator errors.
// Respects context cancellation. Exhaustion returns the last error joined
// with ErrCoordinatorUnavailable so the caller can treat it as fatal.
func (l *Loop) withRetry(ctx context.Context, fn func() error) error {
	delay := l.retry.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= l.retry.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrCoordinatorUnavailable) {
			return lastErr
		}
		if attempt == l.retry.MaxAttempts {
			break
		}

		actualDelay := delay
		if l.retry.Jitter > 0 {
			actualDelay += time.Duration(rand.Float64() * float64(delay) * l.retry.Jitter)
		}
		l.logger.Warn("coordinator unreachable, retrying", "attempt", attempt, "delay", actualDelay, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(actualDelay):
		}

		delay = time.Duration(float64(delay) * l.retry.Multiplier)
		if delay > l.retry.MaxDelay {
			delay = l.retry.MaxDelay
		}
	}

	return lastErr
}
