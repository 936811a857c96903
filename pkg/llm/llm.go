// Package llm defines the generative-model contract used by the chunking and
// tagging stages, the cleaning of model output into structured data, and a
// paced client wrapper that enforces the inter-call delay.
package llm

import (
	"context"
	"errors"
	"net"
)

// Completer sends a prompt to a generative model and returns its raw text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// RetryableError marks a transport failure worth retrying within the same
// call (rate limiting, server errors).
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. Nil stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was marked Retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// RequestFailure renders a model call error as the short reason recorded on
// a chunk or block.
func RequestFailure(err error) string {
	if IsTimeout(err) {
		return "request timeout"
	}
	return "request error: " + err.Error()
}
