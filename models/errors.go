package models

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to HTTP status codes.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrUpstream       = errors.New("upstream error")
	ErrFetchExhausted = errors.New("fetch exhausted")
	ErrInvalidFormat  = errors.New("invalid format")
	ErrAssembly       = errors.New("assembly failed")
)

// Error carries a kind plus a human readable message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// Validationf returns a validation error with a formatted message.
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a not-found error with a formatted message.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Upstreamf returns an upstream error with a formatted message.
func Upstreamf(format string, args ...any) error {
	return &Error{Kind: ErrUpstream, Msg: fmt.Sprintf(format, args...)}
}

// InvalidFormat reports an output or raster format nobody can produce.
func InvalidFormat(format string) error {
	return &Error{Kind: ErrInvalidFormat, Msg: fmt.Sprintf("invalid format: %q", format)}
}
