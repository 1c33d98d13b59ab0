package storage

// Result carries either a value or the error that prevented producing it.
// Best-effort reads return a Result so callers decide explicitly whether to
// ignore the failure.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failure.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.err
}

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// OrElse returns the value, or fallback when the result is an error.
func (r Result[T]) OrElse(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}
