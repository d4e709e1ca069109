// Package errors gives pixclock failures a machine-readable [Code].
//
// Each code belongs to a [Class] that tells the caller how to react:
//
//	ClassLocal      NETWORK_ERROR, TIMEOUT          provider keeps its last content
//	ClassTransport  ACK_TIMEOUT, LINK_LOST, ...     the link reconnects
//	ClassFrame      ENCODING_TOO_LARGE              one frame is dropped
//	ClassFatal      UNKNOWN_PROVIDER, INTERNAL      the tick loop stops
//	ClassInput      INVALID_CONFIG, INVALID_INPUT   the command exits
//
// Build errors with [New] and [Wrap]; test them with [Is], [ClassOf] and
// [IsFatal]. Codes survive fmt.Errorf("%w") wrapping.
//
//	err := errors.Wrap(errors.ErrCodeNetwork, cause, "fetch weather for %s", loc)
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a failure in logs and on the status endpoint.
type Code string

const (
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"

	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	ErrCodeAckTimeout     Code = "ACK_TIMEOUT"
	ErrCodeLinkLost       Code = "LINK_LOST"
	ErrCodeDeviceNotFound Code = "DEVICE_NOT_FOUND"
	ErrCodeUnsupported    Code = "UNSUPPORTED"

	ErrCodeEncodingTooLarge Code = "ENCODING_TOO_LARGE"

	ErrCodeUnknownProvider Code = "UNKNOWN_PROVIDER"
	ErrCodeInternal        Code = "INTERNAL_ERROR"
)

// Class groups codes by the recovery they call for.
type Class int

const (
	ClassNone Class = iota
	ClassInput
	ClassLocal
	ClassTransport
	ClassFrame
	ClassFatal
)

var classes = map[Code]Class{
	ErrCodeInvalidConfig:    ClassInput,
	ErrCodeInvalidInput:     ClassInput,
	ErrCodeNetwork:          ClassLocal,
	ErrCodeTimeout:          ClassLocal,
	ErrCodeAckTimeout:       ClassTransport,
	ErrCodeLinkLost:         ClassTransport,
	ErrCodeDeviceNotFound:   ClassTransport,
	ErrCodeUnsupported:      ClassTransport,
	ErrCodeEncodingTooLarge: ClassFrame,
	ErrCodeUnknownProvider:  ClassFatal,
	ErrCodeInternal:         ClassFatal,
}

// Class returns the class of c, or ClassNone for an unknown code.
func (c Code) Class() Class { return classes[c] }

func (c Class) String() string {
	switch c {
	case ClassInput:
		return "input"
	case ClassLocal:
		return "local"
	case ClassTransport:
		return "transport"
	case ClassFrame:
		return "frame"
	case ClassFatal:
		return "fatal"
	}
	return "none"
}

// Error carries a code, a message for people and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// outermost returns the first *Error in err's chain.
func outermost(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost *Error in err's chain has code.
// Inner codes are context, not identity: a NETWORK_ERROR wrapped as
// INVALID_CONFIG is a config error.
func Is(err error, code Code) bool {
	e, ok := outermost(err)
	return ok && e.Code == code
}

// GetCode returns the outermost code in err's chain, or "".
func GetCode(err error) Code {
	if e, ok := outermost(err); ok {
		return e.Code
	}
	return ""
}

// ClassOf returns the class of err's outermost code.
func ClassOf(err error) Class { return GetCode(err).Class() }

// UserMessage strips the code prefix from coded errors.
func UserMessage(err error) string {
	if e, ok := outermost(err); ok {
		return e.Message
	}
	return err.Error()
}

// IsFatal reports whether err is a logic defect that stops the tick loop.
func IsFatal(err error) bool { return ClassOf(err) == ClassFatal }
