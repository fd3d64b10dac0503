// Package errs defines the classified error taxonomy shared by every
// component: config validation, git URL parsing, readiness timeouts, expected
// domain failures, and platform/transport/auth failures from the container
// platform API. Classifying errors this way lets a single boundary handler
// (see Handle) turn any failure into one user-facing log line.
package errs

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Kind identifies which branch of the taxonomy an error belongs to.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValue
	KindOS
	KindGit
	KindTimeout
	KindStopExecution
	KindPlatform
	KindTransport
	KindAuth
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "ValueError"
	case KindOS:
		return "OSError"
	case KindGit:
		return "GitError"
	case KindTimeout:
		return "TimeoutError"
	case KindStopExecution:
		return "StopExecution"
	case KindPlatform:
		return "PlatformError"
	case KindTransport:
		return "TransportError"
	case KindAuth:
		return "AuthError"
	case KindHTTP:
		return "HTTPError"
	default:
		return "Unexpected"
	}
}

// Error is the concrete type every classified failure is wrapped in.
type Error struct {
	Kind     Kind
	Message  string
	Endpoint string // set for Platform/Transport kinds
	Code     int    // set for Platform/HTTP kinds
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Value(format string, args ...any) *Error {
	return newErr(KindValue, fmt.Sprintf(format, args...), nil)
}

func OS(format string, args ...any) *Error {
	return newErr(KindOS, fmt.Sprintf(format, args...), nil)
}

func Git(format string, args ...any) *Error {
	return newErr(KindGit, fmt.Sprintf(format, args...), nil)
}

func Timeout(msg string) *Error {
	return newErr(KindTimeout, msg, nil)
}

func StopExecution(msg string) *Error {
	return newErr(KindStopExecution, msg, nil)
}

func HTTP(code int, format string, args ...any) *Error {
	e := newErr(KindHTTP, fmt.Sprintf(format, args...), nil)
	e.Code = code
	return e
}

func Auth(msg string, cause error) *Error {
	return newErr(KindAuth, msg, cause)
}

func Transport(endpoint string, cause error) *Error {
	e := newErr(KindTransport, "cannot reach the platform API", cause)
	e.Endpoint = endpoint
	return e
}

// Platform classifies a raw platform API error into our taxonomy, preserving
// the status code and message the platform returned.
func Platform(endpoint string, err error) *Error {
	var statusErr *apierrors.StatusError
	if errors.As(err, &statusErr) {
		e := newErr(KindPlatform, statusErr.ErrStatus.Message, err)
		e.Endpoint = endpoint
		e.Code = int(statusErr.ErrStatus.Code)
		return e
	}
	return newErr(KindUnexpected, "unclassified platform error", err)
}

// IsAlreadyExists reports whether err (directly or via Platform) represents a
// platform AlreadyExists conflict.
func IsAlreadyExists(err error) bool {
	return apierrors.IsAlreadyExists(unwrapCause(err))
}

// IsNotFound reports whether err (directly or via Platform) represents a
// platform NotFound response.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(unwrapCause(err))
}

func unwrapCause(err error) error {
	var classified *Error
	if errors.As(err, &classified) && classified.Cause != nil {
		return classified.Cause
	}
	return err
}

// As reports whether err is (or wraps) an *Error and, if so, returns it.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
