package document

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/gconf"
)

// Initializer stores the configuration found in the genesis file. The
// genesis may omit it, defaults apply then.
type Initializer struct{}

var _ docseal.Initializer = Initializer{}

func (Initializer) FromGenesis(opts docseal.Options, db docseal.KVStore) error {
	var conf Configuration
	switch err := gconf.InitConfig(db, opts, ConfigPkg, &conf); {
	case err == nil, errors.ErrNotFound.Is(err):
		return nil
	default:
		return err
	}
}
