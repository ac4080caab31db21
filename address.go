package docseal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/iov-one/docseal/errors"
)

// AddressLength must not change once a store holds addresses.
const AddressLength = 20

// Address is the truncated sha256 digest of a Condition. Participants are
// known to the ledger by address only.
type Address []byte

// NewAddress digests data, usually a Condition.
func NewAddress(data []byte) Address {
	if data == nil {
		return nil
	}
	sum := sha256.Sum256(data)
	return Address(sum[:AddressLength])
}

// ParseAddress reads the hex form used in URLs and JSON.
func ParseAddress(s string) (Address, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "address %q is not hex", s)
	}
	addr := Address(raw)
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return addr, nil
}

func (a Address) Validate() error {
	if len(a) != AddressLength {
		return errors.Wrapf(errors.ErrInput, "address of %d bytes", len(a))
	}
	return nil
}

func (a Address) Equals(o Address) bool {
	return bytes.Equal(a, o)
}

// String is upper case hex, or (nil) for an empty address.
func (a Address) String() string {
	if len(a) == 0 {
		return "(nil)"
	}
	return strings.ToUpper(hex.EncodeToString(a))
}

// MarshalJSON writes hex instead of the default base64. An empty address
// is an empty string.
func (a Address) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte(`""`), nil
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON reads hex. An empty string gives a nil address.
func (a *Address) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return errors.Wrap(errors.ErrInput, "address must be a string")
	}
	if s == "" {
		*a = nil
		return nil
	}
	addr, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// UniqueAddresses drops repeated addresses, keeping the first occurrence.
func UniqueAddresses(addrs []Address) []Address {
	if len(addrs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(addrs))
	res := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		if !seen[string(a)] {
			seen[string(a)] = true
			res = append(res, a)
		}
	}
	return res
}
