package sigs

import (
	"github.com/iov-one/docseal/errors"
)

// x/sigs reserves 120~129.
var (
	// ErrInvalidSequence is returned when a signature nonce is not the
	// expected one, which is always the case for a replayed transaction.
	ErrInvalidSequence = errors.Register(120, "invalid sequence")
)
