package app

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/store"
)

const dummyKey = "dummy"

type dummyInit struct{}

func (dummyInit) FromGenesis(opts docseal.Options, kv docseal.KVStore) error {
	var value string
	if err := opts.ReadOptions(dummyKey, &value); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	return kv.Set([]byte(dummyKey), []byte(value))
}

type countInit struct {
	called int
}

func (c *countInit) FromGenesis(opts docseal.Options, kv docseal.KVStore) error {
	c.called++
	return nil
}

func TestLoadGenesis(t *testing.T) {
	dir, err := ioutil.TempDir("", "docseal-genesis-")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		assert.Nil(t, ioutil.WriteFile(path, []byte(content), 0600))
		return path
	}

	cases := map[string]struct {
		path        string
		wantErr     *errors.Error
		wantInitErr *errors.Error
		wantChain   string
		wantValue   []byte
		wantCalled  int
	}{
		"no such file": {
			path:    filepath.Join(dir, "missing.json"),
			wantErr: errors.ErrInput,
		},
		"invalid chain id": {
			path:    write("short.json", `{"chain_id": "abc"}`),
			wantErr: errors.ErrInput,
		},
		"proper genesis": {
			path:       write("genesis.json", `{"chain_id": "test-chain-67", "app_state": {"dummy": "secret"}}`),
			wantChain:  "test-chain-67",
			wantValue:  []byte("secret"),
			wantCalled: 1,
		},
		"bad application state": {
			path:        write("bad.json", `{"chain_id": "super-chain-22", "app_state": {"dummy": 42}}`),
			wantInitErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			gen, err := LoadGenesis(tc.path)
			if tc.wantErr != nil {
				assert.IsErr(t, tc.wantErr, err)
				return
			}
			assert.Nil(t, err)

			counter := &countInit{}
			l, err := NewLedger(store.NewMemDB(), Stack())
			assert.Nil(t, err)
			err = l.InitChain(gen, ChainInitializers(dummyInit{}, counter))
			if tc.wantInitErr != nil {
				assert.IsErr(t, tc.wantInitErr, err)
				assert.Equal(t, "", l.ChainID())
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tc.wantChain, l.ChainID())
			assert.Equal(t, tc.wantCalled, counter.called)

			err = l.View(func(db docseal.ReadOnlyKVStore) error {
				val, err := db.Get([]byte(dummyKey))
				assert.Equal(t, tc.wantValue, val)
				return err
			})
			assert.Nil(t, err)
		})
	}
}
