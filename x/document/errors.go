package document

import (
	"github.com/iov-one/docseal/errors"
)

var (
	// ErrAlreadySigned is returned when a signer attempts to sign a
	// document for the second time.
	ErrAlreadySigned = errors.Register(150, "already signed")
)
