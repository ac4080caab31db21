package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Field ties err to the named field of a validated structure. A nil err
// gives nil, so validation code can call it unconditionally.
//
// Names follow the Go field names. Nested fields are joined with a dot and
// list elements use their index, as in Config.MaxSigners or Signers.0.
func Field(name string, err error, desc string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) != 0 {
		desc = fmt.Sprintf(desc, args...)
	}
	return &fieldError{field: name, desc: desc, cause: err}
}

// AppendField adds the field error of fieldErr, if any, to errs.
func AppendField(errs error, name string, fieldErr error) error {
	return Append(errs, Field(name, fieldErr, ""))
}

type fieldError struct {
	field string
	desc  string
	cause error
}

func (e *fieldError) Error() string {
	if e.desc == "" {
		return fmt.Sprintf("field %q: %s", e.field, e.cause)
	}
	return fmt.Sprintf("field %q: %s: %s", e.field, e.desc, e.cause)
}

func (e *fieldError) Cause() error  { return e.cause }
func (e *fieldError) Field() string { return e.field }

// FieldErrors collects the errors attached to the named field anywhere in
// the err tree. A matching field error is returned whole, its own causes
// are not searched further.
func FieldErrors(err error, name string) []error {
	var found []error
	for !isNilErr(err) {
		if f, ok := err.(interface{ Field() string }); ok && f.Field() == name {
			return append(found, err)
		}
		if multi, ok := err.(unpacker); ok {
			for _, e := range multi.Unpack() {
				found = append(found, FieldErrors(e, name)...)
			}
			return found
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return found
}
