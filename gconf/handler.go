package gconf

import (
	"reflect"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/x"
)

// OwnedConfig is a configuration that only its owner may change.
type OwnedConfig interface {
	Configuration
	GetOwner() docseal.Address
}

// UpdateConfigurationHandler applies a patch message to the configuration
// of one package. The message must be a pointer to a struct with a Patch
// field of the configuration type. Zero fields of the patch are left
// unchanged.
type UpdateConfigurationHandler struct {
	pkg       string
	prototype OwnedConfig
	auth      x.Authenticator
	initAdmin func(docseal.ReadOnlyKVStore) (docseal.Address, error)
}

var _ docseal.Handler = UpdateConfigurationHandler{}

// NewUpdateConfigurationHandler returns a handler updating the
// configuration of pkg. initAdmin, when not nil, names who may create the
// configuration if the genesis did not. Afterwards only the owner counts.
func NewUpdateConfigurationHandler(
	pkg string,
	prototype OwnedConfig,
	auth x.Authenticator,
	initAdmin func(docseal.ReadOnlyKVStore) (docseal.Address, error),
) UpdateConfigurationHandler {
	return UpdateConfigurationHandler{pkg: pkg, prototype: prototype, auth: auth, initAdmin: initAdmin}
}

func (h UpdateConfigurationHandler) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.CheckResult, error) {
	if err := h.update(ctx, db, tx); err != nil {
		return nil, err
	}
	return &docseal.CheckResult{}, nil
}

func (h UpdateConfigurationHandler) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.DeliverResult, error) {
	if err := h.update(ctx, db, tx); err != nil {
		return nil, err
	}
	return &docseal.DeliverResult{}, nil
}

func (h UpdateConfigurationHandler) update(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) error {
	// A fresh value per call, the handler serves parallel transactions.
	conf := reflect.New(reflect.TypeOf(h.prototype).Elem()).Interface().(OwnedConfig)

	if err := h.authorize(ctx, db, conf); err != nil {
		return err
	}
	p, err := patchOf(tx)
	if err != nil {
		return err
	}
	if err := apply(conf, p); err != nil {
		return err
	}
	return Save(db, h.pkg, conf)
}

// authorize loads the current configuration into conf and checks the
// transaction is signed by whoever may change it.
func (h UpdateConfigurationHandler) authorize(ctx docseal.Context, db docseal.KVStore, conf OwnedConfig) error {
	err := Load(db, h.pkg, conf)
	switch {
	case err == nil:
		owner := conf.GetOwner()
		if len(owner) == 0 {
			return errors.Wrap(errors.ErrUnauthorized, "configuration has no owner")
		}
		if !h.auth.HasAddress(ctx, owner) {
			return errors.Wrap(errors.ErrUnauthorized, "owner signature required")
		}
		return nil
	case errors.ErrNotFound.Is(err):
		if h.initAdmin == nil {
			return errors.Wrap(errors.ErrUnauthorized, "configuration cannot be created")
		}
		admin, err := h.initAdmin(db)
		if err != nil {
			return errors.Wrap(err, "initialization admin")
		}
		if !h.auth.HasAddress(ctx, admin) {
			return errors.Wrap(errors.ErrUnauthorized, "initialization admin signature required")
		}
		return nil
	default:
		return errors.Wrap(err, "load configuration")
	}
}

// patchOf returns the validated Patch field of the transaction message.
func patchOf(tx docseal.Tx) (OwnedConfig, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, errors.Wrapf(errors.ErrInput, "cannot patch from %T", msg)
	}
	field := v.Elem().FieldByName("Patch")
	if !field.IsValid() || field.Kind() != reflect.Ptr {
		return nil, errors.Wrapf(errors.ErrInput, "%T has no Patch field", msg)
	}
	if field.IsNil() {
		return nil, errors.Wrap(errors.ErrState, "patch is required")
	}
	p, ok := field.Interface().(OwnedConfig)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInput, "patch of %T is not a configuration", msg)
	}
	return p, nil
}

// apply copies every non zero field of p into conf.
func apply(conf, p OwnedConfig) error {
	if reflect.TypeOf(p) != reflect.TypeOf(conf) {
		return errors.Wrapf(errors.ErrMsg, "patch %T does not match %T", p, conf)
	}
	dst := reflect.ValueOf(conf).Elem()
	src := reflect.ValueOf(p).Elem()
	for i := 0; i < dst.NumField(); i++ {
		if f := src.Field(i); !isZero(f) {
			dst.Field(i).Set(f)
		}
	}
	return nil
}

func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return reflect.DeepEqual(v.Interface(), reflect.Zero(v.Type()).Interface())
	}
}
