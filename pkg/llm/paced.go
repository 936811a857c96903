package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/WessleyAI/rizz-engine/pkg/resilience"
	"github.com/cenkalti/backoff/v4"
)

// PacedOpts configures a Paced completer.
type PacedOpts struct {
	// Delay is the minimum spacing between consecutive model calls.
	Delay time.Duration
	// Timeout bounds each individual call.
	Timeout time.Duration
	// Retries is how many extra attempts a RetryableError gets.
	Retries int
	// RetryWait is the initial backoff between retries.
	RetryWait time.Duration
	// Breaker, when set, rejects calls after repeated transport failures.
	Breaker *resilience.Breaker
}

// DefaultPacedOpts mirrors the pipeline defaults.
var DefaultPacedOpts = PacedOpts{
	Delay:     5 * time.Second,
	Timeout:   60 * time.Second,
	Retries:   2,
	RetryWait: 2 * time.Second,
}

// Paced wraps a Completer with call pacing, a per-call timeout, transport
// retries and an optional circuit breaker. Calls are sequential.
type Paced struct {
	next   Completer
	pacer  *resilience.Pacer
	opts   PacedOpts
	logger *slog.Logger
}

// NewPaced creates a Paced completer.
func NewPaced(next Completer, opts PacedOpts, logger *slog.Logger) *Paced {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPacedOpts.Timeout
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = DefaultPacedOpts.RetryWait
	}
	return &Paced{
		next:   next,
		pacer:  resilience.NewPacer(opts.Delay),
		opts:   opts,
		logger: logger,
	}
}

// Complete implements Completer.
func (p *Paced) Complete(ctx context.Context, prompt string) (string, error) {
	var out string
	attempt := 0
	op := func() error {
		attempt++
		if err := p.pacer.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		text, err := p.call(ctx, prompt)
		if err != nil {
			if IsRetryable(err) {
				p.logger.Warn("llm: retryable failure", "attempt", attempt, "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		if strings.TrimSpace(text) == "" {
			return backoff.Permanent(ErrEmptyResponse)
		}
		out = text
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.opts.RetryWait
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(max(p.opts.Retries, 0))), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return "", err
	}
	return out, nil
}

func (p *Paced) call(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	if p.opts.Breaker == nil {
		return p.next.Complete(callCtx, prompt)
	}
	var text string
	err := p.opts.Breaker.Call(callCtx, func(ctx context.Context) error {
		var err error
		text, err = p.next.Complete(ctx, prompt)
		return err
	})
	return text, err
}

// CountsTowardBreaker excludes caller cancellation and empty answers from
// breaker accounting.
func CountsTowardBreaker(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, ErrEmptyResponse)
}
