// Package apperr defines the error kinds surfaced by the cleaning pipeline
// and their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrFormat            = errors.New("format error")
	ErrRemoteUnavailable = errors.New("remote service unavailable")
	ErrRemoteService     = errors.New("remote service error")
	ErrSizeLimit         = errors.New("size limit exceeded")
	ErrInternal          = errors.New("internal error")
)

// Error pairs a kind sentinel with a message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind error, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Kind returns the wire name of err's kind. Errors with no known kind are
// reported as internal errors.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFormat):
		return "format_error"
	case errors.Is(err, ErrRemoteService):
		return "remote_service_error"
	case errors.Is(err, ErrRemoteUnavailable):
		return "remote_service_unavailable"
	case errors.Is(err, ErrSizeLimit):
		return "size_limit_exceeded"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrSizeLimit):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrRemoteService):
		return http.StatusBadGateway
	case errors.Is(err, ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
