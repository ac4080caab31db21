package orm

import (
	"github.com/iov-one/docseal/errors"
)

// ValidateSequence checks id looks like a value handed out by a Sequence.
func ValidateSequence(id []byte) error {
	switch len(id) {
	case 0:
		return errors.Wrap(errors.ErrEmpty, "id")
	case 8:
		return nil
	default:
		return errors.Wrapf(errors.ErrInput, "id of %d bytes, want 8", len(id))
	}
}

// prefixEnd is the exclusive upper bound of every key starting with
// prefix. A prefix of only 0xFF bytes has no bound and nil is returned.
func prefixEnd(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xFF {
			end := append([]byte(nil), prefix[:i+1]...)
			end[i]++
			return end
		}
	}
	return nil
}

// successor is the first key after key in byte order.
func successor(key []byte) []byte {
	return append(append(make([]byte, 0, len(key)+1), key...), 0)
}
