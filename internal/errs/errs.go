// Package errs defines the error kinds shared by the marketplace client.
//
// Every failure that reaches a command is one of a small set of kinds so the
// CLI can decide how to report it. Wrap with fmt.Errorf("...: %w", err) as
// usual; errors.Is(err, errs.ErrValidation) matches any error of that kind.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindProviderUnavailable Kind = "provider_unavailable"
	KindUserRejected        Kind = "user_rejected"
	KindValidation          Kind = "validation_error"
	KindNoBinding           Kind = "no_binding"
	KindNoSession           Kind = "no_session"
	KindTransactionFailed   Kind = "transaction_failed"
	KindCatalogLoadFailed   Kind = "catalog_load_failed"
	KindStorage             Kind = "storage_error"
)

// Sentinels for errors.Is. They carry no message of their own.
var (
	ErrProviderUnavailable = &Error{Kind: KindProviderUnavailable}
	ErrUserRejected        = &Error{Kind: KindUserRejected}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNoBinding           = &Error{Kind: KindNoBinding}
	ErrNoSession           = &Error{Kind: KindNoSession}
	ErrTransactionFailed   = &Error{Kind: KindTransactionFailed}
	ErrCatalogLoadFailed   = &Error{Kind: KindCatalogLoadFailed}
	ErrStorage             = &Error{Kind: KindStorage}
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a classified error with no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validation is shorthand for New(KindValidation, fmt.Sprintf(...)).
func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or "" when err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
