package document

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/gconf"
)

// ConfigPkg is the name the configuration is stored under.
const ConfigPkg = "document"

// Configuration holds the document ledger limits.
type Configuration struct {
	// Owner may update the configuration.
	Owner                docseal.Address `json:"owner"`
	MaxTitleLength       int32           `json:"max_title_length"`
	MaxDescriptionLength int32           `json:"max_description_length"`
	MaxSigners           int32           `json:"max_signers"`
}

// DefaultConfiguration is used when no configuration was stored.
func DefaultConfiguration() Configuration {
	return Configuration{
		MaxTitleLength:       256,
		MaxDescriptionLength: 4096,
		MaxSigners:           64,
	}
}

var _ gconf.OwnedConfig = (*Configuration)(nil)

func (c *Configuration) Validate() error {
	var errs error
	if len(c.Owner) != 0 {
		errs = errors.AppendField(errs, "Owner", c.Owner.Validate())
	}
	if c.MaxTitleLength <= 0 {
		errs = errors.AppendField(errs, "MaxTitleLength", errors.ErrInput)
	}
	if c.MaxDescriptionLength < 0 {
		errs = errors.AppendField(errs, "MaxDescriptionLength", errors.ErrInput)
	}
	if c.MaxSigners <= 0 {
		errs = errors.AppendField(errs, "MaxSigners", errors.ErrInput)
	}
	return errs
}

func (c *Configuration) GetOwner() docseal.Address {
	return c.Owner
}

func (c *Configuration) Marshal() ([]byte, error) {
	return docseal.MarshalBinary(c)
}

func (c *Configuration) Unmarshal(raw []byte) error {
	return docseal.UnmarshalBinary(raw, c)
}

// loadConf returns the stored configuration or the default one if none
// was stored.
func loadConf(db gconf.ReadStore) (*Configuration, error) {
	var conf Configuration
	switch err := gconf.Load(db, ConfigPkg, &conf); {
	case err == nil:
		return &conf, nil
	case errors.ErrNotFound.Is(err):
		conf = DefaultConfiguration()
		return &conf, nil
	default:
		return nil, errors.Wrap(err, "load configuration")
	}
}
