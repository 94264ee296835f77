package backend

import "fmt"

// unavailableError signals that the backend could not be reached at all.
// Distinguished from timeouts so callers can apply differing retry policies.
type unavailableError struct{ cause error }

func (e unavailableError) Error() string {
	return fmt.Sprintf("inference backend unavailable: %v", e.cause)
}
func (e unavailableError) Unwrap() error { return e.cause }

// ErrUnavailable constructs an unavailable error.
func ErrUnavailable(cause error) error { return unavailableError{cause: cause} }

// IsUnavailable reports whether err indicates an unreachable backend.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}

// timeoutError signals that the per-request deadline elapsed before the
// first chunk arrived.
type timeoutError struct {
	model string
	cause error
}

func (e timeoutError) Error() string {
	return "generation deadline exceeded for model " + e.model
}
func (e timeoutError) Unwrap() error { return e.cause }

// ErrTimeout constructs a deadline error for the given model.
func ErrTimeout(model string, cause error) error { return timeoutError{model: model, cause: cause} }

// IsTimeout reports whether err indicates a backend deadline.
func IsTimeout(err error) bool {
	_, ok := err.(timeoutError)
	return ok
}

// remoteError signals a non-2xx response from the backend: reachable, but
// the call was rejected.
type remoteError struct {
	status string
	body   string
}

func (e remoteError) Error() string {
	if e.body == "" {
		return "backend error: " + e.status
	}
	return "backend error: " + e.status + ": " + e.body
}

// IsRemote reports whether err is a backend protocol rejection.
func IsRemote(err error) bool {
	_, ok := err.(remoteError)
	return ok
}

// StreamInterruptedError signals that the stream failed after chunks were
// already delivered. The caller has seen partial output; those chunks stand
// and must not be reported as a from-scratch failure.
type StreamInterruptedError struct {
	// Delivered is the number of chunks emitted before the failure.
	Delivered int
	Cause     error
}

func (e *StreamInterruptedError) Error() string {
	return fmt.Sprintf("stream interrupted after %d chunks: %v", e.Delivered, e.Cause)
}

func (e *StreamInterruptedError) Unwrap() error { return e.Cause }
