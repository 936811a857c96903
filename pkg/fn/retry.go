package fn

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOpts configures retry behavior.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
}

// DefaultRetry provides sensible retry defaults.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: time.Second,
	MaxWait:     30 * time.Second,
	Jitter:      true,
}

func (o RetryOpts) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = o.InitialWait
	exp.MaxInterval = o.MaxWait
	if exp.MaxInterval < exp.InitialInterval {
		exp.MaxInterval = exp.InitialInterval
	}
	exp.MaxElapsedTime = 0
	if !o.Jitter {
		exp.RandomizationFactor = 0
	}
	var b backoff.BackOff = exp
	if o.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(exp, uint64(o.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Retry retries f up to MaxAttempts times with exponential backoff.
// A Fatal result stops retrying immediately.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	var last Result[T]
	op := func() error {
		last = f(ctx)
		if last.IsOk() {
			return nil
		}
		if last.IsFatal() {
			return backoff.Permanent(last.err)
		}
		return last.err
	}

	if err := backoff.Retry(op, opts.backOff(ctx)); err != nil && ctx.Err() != nil {
		return Err[T](ctx.Err())
	}
	return last
}

// RetryStage wraps a Stage with retry logic.
func RetryStage[In, Out any](opts RetryOpts, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return Retry(ctx, opts, func(ctx context.Context) Result[Out] {
			return stage(ctx, in)
		})
	}
}
