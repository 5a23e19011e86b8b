package icp

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryPolicy is a fixed-delay bounded retry. There is no overall deadline across attempts;
// callers needing one must bound ctx.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

type RetryOption func(*RetryPolicy)

func WithMaxAttempts(attempts int) RetryOption {
	return func(p *RetryPolicy) {
		p.MaxAttempts = attempts
	}
}

func WithDelay(delay time.Duration) RetryOption {
	return func(p *RetryPolicy) {
		p.Delay = delay
	}
}

// WithRetry runs op under the agent's retry policy, overridable per call.
// Every error is treated as retryable; the last error is returned once attempts run out.
func WithRetry[T any](ctx context.Context, agent *Agent, op func(ctx context.Context) (T, error), opts ...RetryOption) (T, error) {
	policy := agent.RetryPolicy()
	for _, opt := range opts {
		opt(&policy)
	}
	return Retry(ctx, policy, agent.logger, op)
}

func Retry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := max(policy.MaxAttempts, 1)

	var b backoff.BackOff = backoff.NewConstantBackOff(policy.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		return op(ctx)
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("Operation failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	return backoff.RetryNotifyWithData(operation, b, notify)
}
