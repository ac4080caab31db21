package app

import (
	"encoding/json"
	"io/ioutil"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// Genesis is the content of genesis.json. AppState is handed to every
// extension initializer.
type Genesis struct {
	ChainID  string          `json:"chain_id"`
	AppState docseal.Options `json:"app_state"`
}

// LoadGenesis fails with ErrInput on an unreadable file or a bad chain id.
func LoadGenesis(filePath string) (*Genesis, error) {
	raw, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	var gen Genesis
	if err := json.Unmarshal(raw, &gen); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "unmarshal genesis file: %s", err)
	}
	if !docseal.IsValidChainID(gen.ChainID) {
		return nil, errors.Wrapf(errors.ErrInput, "chain id: %q", gen.ChainID)
	}
	return &gen, nil
}

// ChainInitializers runs every initializer in order and stops at the
// first failure.
func ChainInitializers(inits ...docseal.Initializer) docseal.Initializer {
	return initializers(inits)
}

type initializers []docseal.Initializer

func (all initializers) FromGenesis(opts docseal.Options, db docseal.KVStore) error {
	for _, in := range all {
		if err := in.FromGenesis(opts, db); err != nil {
			return err
		}
	}
	return nil
}
