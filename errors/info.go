package errors

import (
	"errors"
	"fmt"
)

const (
	SuccessCode = 0

	// Errors without a registered kind are reported under this code with a
	// generic message, their text may leak internals.
	internalCode uint32 = 1
	internalLog         = "internal error"
)

// Info returns the code and the message of err as shown to a client. In
// debug mode the message carries the stack trace, otherwise errors of no
// registered kind are reduced to "internal error".
func Info(err error, debug bool) (uint32, string) {
	if isNilErr(err) {
		return SuccessCode, ""
	}
	c := code(err)
	switch {
	case debug:
		return c, fmt.Sprintf("%+v", err)
	case c == internalCode:
		return c, internalLog
	default:
		return c, err.Error()
	}
}

// Code is the code of the kind of err, 1 when err has none.
func Code(err error) uint32 {
	return code(err)
}

// Redact hides errors of no registered kind and panics behind a generic
// error. In debug mode err is returned as is.
func Redact(err error, debug bool) error {
	if debug {
		return err
	}
	if ErrPanic.Is(err) || code(err) == internalCode {
		return errors.New(internalLog)
	}
	return err
}

type coder interface {
	Code() uint32
}

func code(err error) uint32 {
	if isNilErr(err) {
		return SuccessCode
	}
	for {
		if c, ok := err.(coder); ok {
			return c.Code()
		}
		cause, ok := err.(causer)
		if !ok {
			return internalCode
		}
		err = cause.Cause()
	}
}
