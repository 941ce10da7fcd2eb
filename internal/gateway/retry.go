package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/protocollens/internal/protocol"
)

// RetryConfig configures the Retrying decorator.
type RetryConfig struct {
	Attempts uint          // Total attempts including the first, default 3
	Delay    time.Duration // Base backoff delay, default 2s
	MaxDelay time.Duration // Backoff cap, default 30s
	Logger   *slog.Logger
}

// Retrying wraps a Gateway and repeats calls that failed with a retryable
// UpstreamCallError. Malformed replies are never retried: a second sample
// would hide a prompt problem rather than a transport one.
type Retrying struct {
	next     Gateway
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
	logger   *slog.Logger
}

// WithRetry wraps next with retry and exponential backoff.
func WithRetry(next Gateway, cfg RetryConfig) *Retrying {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 2 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Retrying{
		next:     next,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		maxDelay: cfg.MaxDelay,
		logger:   cfg.Logger,
	}
}

// Complete calls the wrapped gateway until it succeeds, fails permanently,
// or runs out of attempts. The last error is returned unwrapped.
func (r *Retrying) Complete(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	err := retry.Do(
		func() error {
			var err error
			resp, err = r.next.Complete(ctx, req)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.MaxDelay(r.maxDelay),
		retry.DelayType(retryAfterOrBackoff),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("gateway.retry", "stage", req.Stage, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if !protocol.IsClassified(err) {
			// Context expiry while backing off.
			return nil, upstreamError(req.Stage, "", err)
		}
		return nil, err
	}
	return resp, nil
}

func isRetryable(err error) bool {
	var upErr *protocol.UpstreamCallError
	if errors.As(err, &upErr) {
		return upErr.Retryable()
	}
	return false
}

// retryAfterOrBackoff honours a provider Retry-After hint, falling back to
// exponential backoff.
func retryAfterOrBackoff(n uint, err error, config *retry.Config) time.Duration {
	var upErr *protocol.UpstreamCallError
	if errors.As(err, &upErr) && upErr.RetryAfter > 0 {
		return upErr.RetryAfter
	}
	return retry.BackOffDelay(n, err, config)
}

var _ Gateway = (*Retrying)(nil)
