package docseal_test

import (
	"testing"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/errors"
)

type otherMsg struct {
	docsealtest.Msg
}

func TestLoadMsg(t *testing.T) {
	cases := map[string]struct {
		tx      docseal.Tx
		dest    interface{}
		wantErr *errors.Error
	}{
		"loaded": {
			tx:   &docsealtest.Tx{Msg: &docsealtest.Msg{RoutePath: "a"}},
			dest: &docsealtest.Msg{},
		},
		"invalid message": {
			tx:      &docsealtest.Tx{Msg: &docsealtest.Msg{Err: errors.ErrInput}},
			dest:    &docsealtest.Msg{},
			wantErr: errors.ErrInput,
		},
		"wrong type": {
			tx:      &docsealtest.Tx{Msg: &otherMsg{}},
			dest:    &docsealtest.Msg{},
			wantErr: errors.ErrType,
		},
		"not a pointer": {
			tx:      &docsealtest.Tx{Msg: &docsealtest.Msg{}},
			dest:    docsealtest.Msg{},
			wantErr: errors.ErrHuman,
		},
		"no message": {
			tx:      &docsealtest.Tx{},
			dest:    &docsealtest.Msg{},
			wantErr: errors.ErrMsg,
		},
		"transaction error": {
			tx:      &docsealtest.Tx{Err: errors.ErrState},
			dest:    &docsealtest.Msg{},
			wantErr: errors.ErrState,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := docseal.LoadMsg(tc.tx, tc.dest)
			if tc.wantErr != nil {
				assert.IsErr(t, tc.wantErr, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, "a", tc.dest.(*docsealtest.Msg).Path())
		})
	}
}
