package docseal

import (
	"github.com/iov-one/docseal/errors"
	amino "github.com/tendermint/go-amino"
)

// All persisted models and messages are serialized with amino binary
// encoding. None of them contain interface fields, so the codec needs no
// registration.
var cdc = amino.NewCodec()

// MarshalBinary serializes a model or message.
func MarshalBinary(o interface{}) ([]byte, error) {
	bz, err := cdc.MarshalBinaryBare(o)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "marshal %T: %s", o, err)
	}
	return bz, nil
}

// UnmarshalBinary deserializes into the model or message pointed to by ptr.
func UnmarshalBinary(bz []byte, ptr interface{}) error {
	if err := cdc.UnmarshalBinaryBare(bz, ptr); err != nil {
		return errors.Wrapf(errors.ErrInput, "unmarshal %T: %s", ptr, err)
	}
	return nil
}
