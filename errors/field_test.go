package errors

import (
	"reflect"
	"testing"
)

func TestFieldErrors(t *testing.T) {
	// Declare errors upfront so that DeepEqual can be used for comparison.
	var (
		unauthorizedTitleErr = Field("Title", ErrUnauthorized, "a")
		humanTitleErr        = Field("Title", ErrHuman, "b")
		emptySignersErr      = Field("Signers", ErrEmpty, "signers are required")
		documentMultiErr     = Field("Document", Append(
			humanTitleErr,
			Append(emptySignersErr, ErrState),
		), "document invalid")

		emptySignersWrapErr = Field("Signers", emptySignersErr, "outer")
	)

	cases := map[string]struct {
		Err   error
		Field string
		Want  []error
	}{
		"a single error found by the name": {
			Err:   unauthorizedTitleErr,
			Field: "Title",
			Want:  []error{unauthorizedTitleErr},
		},
		"two error found by the name": {
			Err: Append(
				unauthorizedTitleErr,
				humanTitleErr,
			),
			Field: "Title",
			Want: []error{
				unauthorizedTitleErr,
				humanTitleErr,
			},
		},
		"field can contain a multierror": {
			Err:   documentMultiErr,
			Field: "Document",
			Want:  []error{documentMultiErr},
		},
		"field can inspect errors tree to find match (Title)": {
			Err:   documentMultiErr,
			Field: "Title",
			Want:  []error{humanTitleErr},
		},
		"field can inspect errors tree to find match (Signers)": {
			Err:   documentMultiErr,
			Field: "Signers",
			Want:  []error{emptySignersErr},
		},
		"nil error returns nothing": {
			Err:   nil,
			Field: "foo",
			Want:  nil,
		},
		"error not found by the field name": {
			Err:   ErrUnauthorized,
			Field: "foo",
			Want:  nil,
		},
		"error not found by the wrong field name": {
			Err:   Field("a-name", ErrUnauthorized, "a description"),
			Field: "foo",
			Want:  nil,
		},
		"field is wrapped": {
			Err:   Wrap(Wrap(humanTitleErr, "inner"), "outer"),
			Field: "Title",
			Want:  []error{humanTitleErr},
		},
		"multi error field is wrapped (Signers)": {
			Err:   Wrap(Wrap(documentMultiErr, "inner"), "outer"),
			Field: "Signers",
			Want:  []error{emptySignersErr},
		},
		"multi error field is wrapped (Title)": {
			Err:   Wrap(Wrap(documentMultiErr, "inner"), "outer"),
			Field: "Title",
			Want:  []error{humanTitleErr},
		},
		"multi error field is wrapped, no match": {
			Err:   Wrap(Wrap(documentMultiErr, "inner"), "outer"),
			Field: "unknown-name",
			Want:  nil,
		},
		"multiple field wrap with most inner as the result": {
			Err:   Field("a", Field("b", humanTitleErr, "b desc"), "a desc"),
			Field: "Title",
			Want:  []error{humanTitleErr},
		},
		"multiple field wrap with the same field return the most outside only": {
			Err:   emptySignersWrapErr,
			Field: "Signers",
			Want:  []error{emptySignersWrapErr},
		},
		"complex error with multiple results": {
			Err: Wrap(Append(
				Wrap(unauthorizedTitleErr, "a"),
				Wrap(humanTitleErr, "b"),
				Wrap(emptySignersErr, "c"),
			), "outer"),
			Field: "Title",
			Want:  []error{unauthorizedTitleErr, humanTitleErr},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got := FieldErrors(tc.Err, tc.Field)
			if !reflect.DeepEqual(tc.Want, got) {
				t.Logf("want: %#v", tc.Want)
				t.Logf(" got: %#v", got)
				t.Fatal("unexpected result")
			}
		})
	}
}
