package orchestrator

// invalidRequestError rejects requests carrying neither text nor image.
// Rejection happens before classification; this is a contract, not an
// optimization.
type invalidRequestError struct{}

func (invalidRequestError) Error() string { return "text or image is required" }

// ErrInvalidRequest constructs an invalid-request error.
func ErrInvalidRequest() error { return invalidRequestError{} }

// IsInvalidRequest reports whether err indicates an empty request.
func IsInvalidRequest(err error) bool {
	_, ok := err.(invalidRequestError)
	return ok
}
