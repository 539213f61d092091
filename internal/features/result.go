package features

// Result is the outcome of an assembly stage: a value or an error.
type Result[T any] struct {
	val T
	err error
	ok  bool
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v, ok: true}
}

// Err creates a failed Result.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// IsOk returns true if the result is successful.
func (r Result[T]) IsOk() bool { return r.ok }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// Error returns the failure, or nil.
func (r Result[T]) Error() error { return r.err }

// OrElse runs f on failures that match recoverable and returns its result in
// place of r. Other results pass through untouched.
func (r Result[T]) OrElse(recoverable func(error) bool, f func(error) Result[T]) Result[T] {
	if r.ok || !recoverable(r.err) {
		return r
	}
	return f(r.err)
}
