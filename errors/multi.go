package errors

import (
	"strconv"
	"strings"
)

// Append bundles errs into one error, dropping nils and flattening nested
// bundles. It returns nil for no error and the error itself for one.
func Append(errs ...error) error {
	var all bundle
	for _, err := range errs {
		switch e := err.(type) {
		case unpacker:
			if !isNilErr(err) {
				all = append(all, e.Unpack()...)
			}
		default:
			if !isNilErr(err) {
				all = append(all, err)
			}
		}
	}
	switch len(all) {
	case 0:
		return nil
	case 1:
		return all[0]
	}
	return all
}

type bundle []error

var _ unpacker = bundle(nil)

func (b bundle) Error() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(b)))
	sb.WriteString(" errors occurred:")
	for _, err := range b {
		sb.WriteString("\n\t* ")
		sb.WriteString(err.Error())
	}
	sb.WriteString("\n")
	return sb.String()
}

func (b bundle) Unpack() []error { return b }

// Code is the code of the first error, a failed validation is reported by
// its first problem.
func (b bundle) Code() uint32 { return code(b[0]) }
