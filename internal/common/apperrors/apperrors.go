// Package apperrors implements the application's error type. Errors carry an
// HTTP-ish status code and can be derived from one another so that callers
// can match any ancestor in the chain with errors.Is.
package apperrors

import "errors"

// Error is the application error interface. Derivation methods return a new
// Error; the receiver is never mutated.
type Error interface {
	error
	Unwrap() error

	New(msg string) Error                   // fresh error with the receiver as template
	Msg(msg string) Error                   // new message, wraps the receiver
	MsgErr(msg string, errs ...error) Error // new message, wraps the receiver and extras
	Err(errs ...error) Error                // same message, attaches extra errors
	SetStatusCode(int) Error                // associates a status code
	StatusCode() int
	UnwrapAll() []error
}

type appError struct {
	msg        string
	base       error
	wrapped    []error
	statuscode int
}

// New creates a root-level error with the given message.
func New(msg string) Error {
	return &appError{msg: msg}
}

func (e *appError) Error() string {
	return e.msg
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrapped
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		wrapped:    append([]error{e}, e.wrapped...),
		statuscode: e.statuscode,
	}
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:        msg,
		base:       e,
		wrapped:    append([]error{e}, errs...),
		statuscode: e.statuscode,
	}
}

func (e *appError) Err(errs ...error) Error {
	return &appError{
		msg:        e.msg,
		base:       e,
		wrapped:    append([]error{e}, errs...),
		statuscode: e.statuscode,
	}
}

func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

// Is matches the target against the base error and every wrapped error, so a
// derived error satisfies errors.Is for the whole ancestry.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrapped {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
