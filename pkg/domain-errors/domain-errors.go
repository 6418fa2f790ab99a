package domainerrors

import "errors"

// Code is a transport-agnostic error category. Handlers map codes to HTTP statuses,
// services and stores never see status codes.
type Code string

const (
	CodeNotFound              Code = "not_found"
	CodeBadRequest            Code = "bad_request"
	CodeValidation            Code = "validation_failed"
	CodeInternal              Code = "internal_error"
	CodeConflict              Code = "conflict"
	CodeUnauthorized          Code = "unauthorized"
	CodeForbidden             Code = "forbidden"
	CodeTimeout               Code = "timeout"
	CodeUnavailable           Code = "unavailable"
	CodeProviderNotConfigured Code = "provider_not_configured"
)

// Error wraps a failure with a stable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by code, so errors.Is(err, New(CodeNotFound, "")) works across messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap wraps err with a code and message. An existing domain code in err wins over code.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether err carries the given domain code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the outermost domain code in err, or CodeInternal when none is present.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
