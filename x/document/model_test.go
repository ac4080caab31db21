package document

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/errors"
)

func TestComputeStatus(t *testing.T) {
	cases := map[string]struct {
		sigs, signed, signers int
		want                  Status
	}{
		"no signers":                     {0, 0, 0, StatusPending},
		"nobody signed":                  {0, 0, 2, StatusPending},
		"some signed":                    {1, 1, 2, StatusPartial},
		"all signed":                     {2, 2, 2, StatusComplete},
		"signed signer revoked":          {1, 0, 1, StatusPartial},
		"revoked signer and all current": {2, 1, 1, StatusComplete},
		"every signer revoked":           {2, 0, 0, StatusPartial},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeStatus(tc.sigs, tc.signed, tc.signers))
		})
	}
}

// assertDerivedStatus recomputes the status from scratch and compares it
// with the stored one.
func assertDerivedStatus(t testing.TB, d *Document) {
	t.Helper()
	unique := make(map[string]bool)
	for _, s := range d.AuthorizedSigners {
		unique[string(s)] = false
	}
	for _, sig := range d.Signatures {
		if _, ok := unique[string(sig.Signer)]; ok {
			unique[string(sig.Signer)] = true
		}
	}
	unsigned := 0
	for _, signed := range unique {
		if !signed {
			unsigned++
		}
	}
	var want Status
	switch {
	case len(d.Signatures) == 0:
		want = StatusPending
	case len(unique) > 0 && unsigned == 0:
		want = StatusComplete
	default:
		want = StatusPartial
	}
	assert.Equal(t, want, d.Status)
	assert.Nil(t, d.Validate())
}

func TestDocumentMutationsKeepStatusDerived(t *testing.T) {
	a := docsealtest.NewCondition().Address()
	b := docsealtest.NewCondition().Address()
	c := docsealtest.NewCondition().Address()
	creator := docsealtest.NewCondition().Address()

	d := NewDocument(docsealtest.SequenceID(1), creator, "lease", "", "", []docseal.Address{a, b, a}, 1000)
	assert.Equal(t, 2, len(d.AuthorizedSigners))
	assertDerivedStatus(t, d)

	steps := []func(){
		func() { assert.Nil(t, d.Sign(a, 2000)) },
		func() { assert.Equal(t, true, d.AddSigner(c)) },
		func() { assert.Equal(t, false, d.AddSigner(c)) },
		func() { assert.Nil(t, d.Sign(b, 3000)) },
		func() { assert.Equal(t, true, d.RemoveSigner(c)) },
		func() { assert.Equal(t, false, d.RemoveSigner(c)) },
		func() { assert.Equal(t, true, d.RemoveSigner(a)) },
		func() { assert.Equal(t, true, d.AddSigner(a)) },
	}
	var prevSigs int
	for _, step := range steps {
		step()
		assertDerivedStatus(t, d)
		if len(d.Signatures) < prevSigs {
			t.Fatalf("signature removed: %d < %d", len(d.Signatures), prevSigs)
		}
		prevSigs = len(d.Signatures)
	}
	assert.Equal(t, StatusComplete, d.Status)
	assert.Equal(t, 2, len(d.Signatures))
}

func TestRevokedSignatureDoesNotComplete(t *testing.T) {
	a := docsealtest.NewCondition().Address()
	b := docsealtest.NewCondition().Address()
	d := NewDocument(docsealtest.SequenceID(1), docsealtest.NewCondition().Address(), "t", "", "", []docseal.Address{a, b}, 1)

	assert.Nil(t, d.Sign(a, 2))
	assert.Equal(t, StatusPartial, d.Status)
	assert.Equal(t, true, d.RemoveSigner(a))
	assert.Equal(t, StatusPartial, d.Status)

	assert.Nil(t, d.Sign(b, 3))
	assert.Equal(t, StatusComplete, d.Status)
	assert.Nil(t, d.Validate())
}

func TestDocumentSignTwice(t *testing.T) {
	a := docsealtest.NewCondition().Address()
	d := NewDocument(docsealtest.SequenceID(1), docsealtest.NewCondition().Address(), "t", "", "", []docseal.Address{a}, 1)
	assert.Nil(t, d.Sign(a, 2))
	version := d.Version

	err := d.Sign(a, 3)
	assert.IsErr(t, ErrAlreadySigned, err)
	assert.Equal(t, 1, len(d.Signatures))
	assert.Equal(t, docseal.UnixTime(2), d.Signatures[0].SignedAt)
	assert.Equal(t, version, d.Version)
}

func TestLatestBlobRef(t *testing.T) {
	cases := map[string]struct {
		current string
		history []string
		want    string
	}{
		"nothing uploaded":  {"", nil, ""},
		"no signed version": {"cur", nil, "cur"},
		"one version":       {"cur", []string{"v1"}, "v1"},
		"newest last":       {"cur", []string{"v1", "v2", "v3"}, "v3"},
		"only history":      {"", []string{"v1"}, "v1"},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			d := NewDocument(docsealtest.SequenceID(1), docsealtest.NewCondition().Address(), "t", "", tc.current, nil, 1)
			for _, ref := range tc.history {
				d.AppendSignedVersion(ref)
			}
			assert.Equal(t, tc.want, d.LatestBlobRef())
			// Appending never changes the current reference.
			assert.Equal(t, tc.current, d.BlobRef)
		})
	}
}

func TestAuthorize(t *testing.T) {
	creator := docsealtest.NewCondition().Address()
	signer := docsealtest.NewCondition().Address()
	stranger := docsealtest.NewCondition().Address()
	d := NewDocument(docsealtest.SequenceID(1), creator, "t", "", "", []docseal.Address{signer}, 1)

	assert.Equal(t, true, Authorize(d, creator))
	assert.Equal(t, true, Authorize(d, signer))
	assert.Equal(t, false, Authorize(d, stranger))
	assert.Equal(t, false, Authorize(d, nil))
	assert.Equal(t, false, Authorize(nil, creator))

	d.RemoveSigner(signer)
	assert.Equal(t, false, Authorize(d, signer))
}

func TestDocumentValidate(t *testing.T) {
	a := docsealtest.NewCondition().Address()
	valid := func() *Document {
		d := NewDocument(docsealtest.SequenceID(1), docsealtest.NewCondition().Address(), "t", "", "ref", []docseal.Address{a}, 1)
		return d
	}
	cases := map[string]struct {
		mutate func(*Document)
		field  string
		want   *errors.Error
	}{
		"valid": {
			mutate: func(*Document) {},
		},
		"missing title": {
			mutate: func(d *Document) { d.Title = "" },
			field:  "Title",
			want:   errors.ErrEmpty,
		},
		"status set directly": {
			mutate: func(d *Document) { d.Status = StatusComplete },
			field:  "Status",
			want:   errors.ErrState,
		},
		"duplicated signature": {
			mutate: func(d *Document) {
				d.Signatures = []*Signature{{Signer: a, SignedAt: 1}, {Signer: a, SignedAt: 2}}
				d.Status = StatusComplete
			},
			field: "Signatures",
			want:  errors.ErrDuplicate,
		},
		"complete by a signature of a revoked signer": {
			mutate: func(d *Document) {
				d.Signatures = []*Signature{{Signer: docsealtest.NewCondition().Address(), SignedAt: 1}}
				d.Status = StatusComplete
			},
			field: "Status",
			want:  errors.ErrState,
		},
		"bad id": {
			mutate: func(d *Document) { d.ID = []byte("x") },
			field:  "ID",
			want:   errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			d := valid()
			tc.mutate(d)
			err := d.Validate()
			if tc.want == nil {
				assert.Nil(t, err)
				return
			}
			assert.FieldError(t, err, tc.field, tc.want)
		})
	}
}

func TestDocumentCopy(t *testing.T) {
	a := docsealtest.NewCondition().Address()
	d := NewDocument(docsealtest.SequenceID(1), docsealtest.NewCondition().Address(), "t", "", "ref", []docseal.Address{a}, 1)
	assert.Nil(t, d.Sign(a, 2))

	cp := d.Copy().(*Document)
	assert.Equal(t, d, cp)
	cp.Signatures[0].SignedAt = 9
	cp.AppendSignedVersion("other")
	assert.Equal(t, docseal.UnixTime(2), d.Signatures[0].SignedAt)
	assert.Equal(t, 0, len(d.SignedBlobHistory))
}

func TestStatusJSON(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusPartial, StatusComplete} {
		raw, err := json.Marshal(s)
		assert.Nil(t, err)
		var got Status
		assert.Nil(t, json.Unmarshal(raw, &got))
		assert.Equal(t, s, got)
	}
	var s Status
	assert.IsErr(t, errors.ErrInput, json.Unmarshal([]byte(`"signed"`), &s))
	assert.IsErr(t, errors.ErrInput, json.Unmarshal([]byte(`2`), &s))
}
