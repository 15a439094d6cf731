// Package errs defines the error kinds the client reacts to differently:
// authorization failures end the session, validation failures never reach the
// network, transient failures are logged and retried by the next cycle.
package errs

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

type Kind string

const (
	KindAuth       Kind = "AUTH"
	KindValidation Kind = "VALIDATION"
	KindTransient  Kind = "TRANSIENT"
	KindNotFound   Kind = "NOT_FOUND"
	KindForbidden  Kind = "FORBIDDEN"
)

// Error is a classified client error. Stack is captured where the error was
// first created or wrapped.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Stack   []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) StackTrace() []byte {
	return e.Stack
}

func New(kind Kind, message string, err error) *Error {
	var stack []byte
	if err != nil {
		var stackErr *goerrors.Error
		if errors.As(err, &stackErr) {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

func Auth(message string, err error) *Error {
	return New(KindAuth, message, err)
}

func Validation(message string, err error) *Error {
	return New(KindValidation, message, err)
}

func Transient(message string, err error) *Error {
	return New(KindTransient, message, err)
}

func NotFound(message string, err error) *Error {
	return New(KindNotFound, message, err)
}

func Forbidden(message string, err error) *Error {
	return New(KindForbidden, message, err)
}

// KindOf returns the kind of the first classified error in the chain, or an
// empty kind for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsAuth(err error) bool       { return Is(err, KindAuth) }
func IsValidation(err error) bool { return Is(err, KindValidation) }
func IsTransient(err error) bool  { return Is(err, KindTransient) }
func IsNotFound(err error) bool   { return Is(err, KindNotFound) }
