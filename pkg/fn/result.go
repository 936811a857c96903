package fn

import "fmt"

// Result[T] is a generic result type for stage outcomes. A failed Result is
// either recoverable (Err, the default) or fatal (Fatal). Recoverable failures
// may be retried or skipped by the caller; fatal ones must abort the run.
type Result[T any] struct {
	val   T
	err   error
	ok    bool
	fatal bool
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v, ok: true}
}

// Err creates a recoverable failed Result from an error.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Errf creates a recoverable failed Result from a formatted string.
func Errf[T any](format string, args ...any) Result[T] {
	return Result[T]{err: fmt.Errorf(format, args...)}
}

// Fatal creates a failed Result that retrying cannot fix.
func Fatal[T any](err error) Result[T] {
	return Result[T]{err: err, fatal: true}
}

// IsOk returns true if the result is successful.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr returns true if the result is an error of either kind.
func (r Result[T]) IsErr() bool { return !r.ok }

// IsFatal returns true if the result failed and must not be retried.
func (r Result[T]) IsFatal() bool { return !r.ok && r.fatal }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// Error returns the failure, or nil on success.
func (r Result[T]) Error() error { return r.err }

// Must returns the value or panics on error.
func (r Result[T]) Must() T {
	if !r.ok {
		panic(r.err)
	}
	return r.val
}

// UnwrapOr returns the value or a fallback on error.
func (r Result[T]) UnwrapOr(fallback T) T {
	if !r.ok {
		return fallback
	}
	return r.val
}

// Map transforms the value if ok.
func (r Result[T]) Map(f func(T) T) Result[T] {
	if !r.ok {
		return r
	}
	return Ok(f(r.val))
}

// AndThen chains a function that returns a Result.
func (r Result[T]) AndThen(f func(T) Result[T]) Result[T] {
	if !r.ok {
		return r
	}
	return f(r.val)
}

// Propagate converts a failed Result[T] into a failed Result[U] of the same
// kind. It must only be called on failed results.
func Propagate[U, T any](r Result[T]) Result[U] {
	return Result[U]{err: r.err, fatal: r.fatal}
}

// MapResult transforms Result[T] to Result[U].
func MapResult[T, U any](r Result[T], f func(T) U) Result[U] {
	if !r.ok {
		return Propagate[U](r)
	}
	return Ok(f(r.val))
}

// FromPair creates a Result from a (value, error) pair.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// Collect returns Ok with all values if all results are ok, or the first error.
func Collect[T any](results []Result[T]) Result[[]T] {
	out := make([]T, len(results))
	for i, r := range results {
		if !r.ok {
			return Propagate[[]T](r)
		}
		out[i] = r.val
	}
	return Ok(out)
}
