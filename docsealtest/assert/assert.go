// Package assert holds the few test helpers used across docseal packages.
// Every helper stops the test on the first failure.
package assert

import (
	"reflect"
	"testing"

	"github.com/iov-one/docseal/errors"
)

// Tester is the part of testing.TB the helpers rely on.
type Tester interface {
	Helper()
	Fatal(...interface{})
	Fatalf(string, ...interface{})
}

// Nil fails unless value is nil or a typed nil.
func Nil(t Tester, value interface{}) {
	t.Helper()
	if value == nil || nilable(value) {
		return
	}
	// %+v prints the stack of a wrapped error.
	t.Fatalf("want nil, got %+v", value)
}

func nilable(value interface{}) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// Equal compares with reflect.DeepEqual.
func Equal(t Tester, want, got interface{}) {
	t.Helper()
	if reflect.DeepEqual(want, got) {
		return
	}
	t.Fatalf("not equal\nwant %T %v\n got %T %v", want, want, got, got)
}

// Panics fails unless fn panics.
func Panics(t Tester, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("no panic")
		}
	}()
	fn()
}

// FieldError checks the errors attached to a single field name. A nil want
// means the field must carry no error at all, otherwise exactly one error of
// the wanted kind must be attached.
func FieldError(t testing.TB, err error, field string, want *errors.Error) {
	t.Helper()

	errs := errors.FieldErrors(err, field)
	if want == nil {
		if len(errs) != 0 {
			t.Fatalf("field %q: want no error, got %q", field, errs)
		}
		return
	}
	switch len(errs) {
	case 0:
		t.Fatalf("field %q: no error", field)
	case 1:
		if !want.Is(errs[0]) {
			t.Fatalf("field %q: want %q, got %q", field, want, errs[0])
		}
	default:
		t.Fatalf("field %q: want a single error, got %d: %q", field, len(errs), errs)
	}
}

// IsErr fails unless got is want or wraps it.
func IsErr(t testing.TB, want, got error) {
	t.Helper()
	if want == got {
		return
	}
	if w, ok := want.(interface{ Is(error) bool }); ok && w.Is(got) {
		return
	}
	t.Fatalf("want %q, got %+v", want, got)
}
