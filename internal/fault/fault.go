// Package fault defines the error classes shared by every module. Handlers
// map them to HTTP status codes with errors.Is; services wrap them with
// fmt.Errorf("%w: ...") so the class survives wrapping.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks malformed or out-of-range input. Rejected before
	// any write, never retried.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a business-rule violation: duplicate active shift,
	// occupied spot, double payment.
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks a referenced record that does not exist or is not
	// owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrSync marks transient backing-store unreachability. Queued writes
	// never surface this to the operator.
	ErrSync = errors.New("backing store unreachable")
)

func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Syncf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSync, fmt.Sprintf(format, args...))
}

// Status maps an error to the HTTP status a handler should respond with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrSync):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
