package errors

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Wrap adds desc in front of err. A nil err gives nil, so a function can
// end with return Wrap(err, "...").
func Wrap(err error, desc string) error {
	if err == nil {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	return &wrappedError{msg: desc, cause: err}
}

func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithType wraps err with the type name of obj.
func WithType(err error, obj interface{}) error {
	return Wrapf(err, "%T", obj)
}

// Recover turns a panic into ErrPanic stored in *err. Use it deferred.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

type wrappedError struct {
	msg   string
	cause error
}

func (e *wrappedError) Error() string { return e.msg + ": " + e.cause.Error() }
func (e *wrappedError) Cause() error  { return e.cause }
func (e *wrappedError) Unwrap() error { return e.cause }

// Format prints the stack trace for %+v.
func (e *wrappedError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s: %+v", e.msg, e.cause)
		return
	}
	fmt.Fprint(s, e.Error())
}

type causer interface {
	Cause() error
}

type unpacker interface {
	Unpack() []error
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackTrace returns the innermost recorded stack trace, if any.
func stackTrace(err error) errors.StackTrace {
	for err != nil {
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		c, ok := err.(causer)
		if !ok {
			return nil
		}
		err = c.Cause()
	}
	return nil
}

// isNilErr also catches a typed nil pointer stored in the interface.
func isNilErr(err error) bool {
	if err == nil {
		return true
	}
	v := reflect.ValueOf(err)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
