package capability

import (
	"github.com/iov-one/docseal/errors"
)

var (
	// ErrCapabilityNotFound is returned when the holder does not own a
	// capability. It is distinct from errors.ErrUnauthorized, which is
	// returned when an owned capability is bound to another document.
	ErrCapabilityNotFound = errors.Register(130, "capability not found")
)
