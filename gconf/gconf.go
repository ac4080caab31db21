/*
Package gconf keeps one configuration object per extension inside the
ledger state. A configuration is seeded from the genesis "conf" section and
later patched by transactions signed by its owner.
*/
package gconf

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// ReadStore is the part of a store Load needs.
type ReadStore interface {
	Get([]byte) ([]byte, error)
}

// Store is the part of a store Save needs.
type Store interface {
	ReadStore
	Set([]byte, []byte) error
}

type ValidMarshaler interface {
	Marshal() ([]byte, error)
	Validate() error
}

type Unmarshaler interface {
	Unmarshal([]byte) error
}

// Configuration is implemented by every extension configuration.
type Configuration interface {
	ValidMarshaler
	Unmarshaler
}

// Key is the store key holding the configuration of pkg. Transactions
// reading the configuration declare it as a contention key.
func Key(pkg string) []byte {
	return []byte("_c:" + pkg)
}

// Save validates conf and writes it as the configuration of pkg.
func Save(db Store, pkg string, conf ValidMarshaler) error {
	if err := conf.Validate(); err != nil {
		return errors.Wrapf(err, "invalid %s configuration", pkg)
	}
	raw, err := conf.Marshal()
	if err != nil {
		return errors.Wrapf(err, "marshal %s configuration", pkg)
	}
	return db.Set(Key(pkg), raw)
}

// Load reads the configuration of pkg into dst. A configuration that was
// never saved gives ErrNotFound.
func Load(db ReadStore, pkg string, dst Unmarshaler) error {
	raw, err := db.Get(Key(pkg))
	switch {
	case err != nil:
		return err
	case raw == nil:
		return errors.Wrapf(errors.ErrNotFound, "%s configuration", pkg)
	}
	if err := dst.Unmarshal(raw); err != nil {
		return errors.Wrapf(err, "unmarshal %s configuration", pkg)
	}
	return nil
}

// InitConfig reads the genesis section conf.<pkg> into conf and saves it.
// ErrNotFound means the genesis has no section for pkg, which callers may
// treat as optional.
func InitConfig(db Store, opts docseal.Options, pkg string, conf Configuration) error {
	var sections docseal.Options
	if err := opts.ReadOptions("conf", &sections); err != nil {
		return errors.Wrap(errors.ErrInput, "genesis conf section")
	}
	if sections[pkg] == nil {
		return errors.Wrapf(errors.ErrNotFound, "genesis has no %s configuration", pkg)
	}
	if err := sections.ReadOptions(pkg, conf); err != nil {
		return errors.Wrapf(errors.ErrInput, "genesis %s configuration: %s", pkg, err)
	}
	return Save(db, pkg, conf)
}
