/*
Package orm stores typed entities in prefixed sections of the ledger
store called buckets. A bucket holds one model type under <name>:<key>
and keeps its secondary indexes next to it, one store key per indexed
entry:

	_x.<len>index<len>value<len>key

so that every entity indexed under a value can be paged in key order
without loading the whole set. Sequences hand out ordered 8 byte ids.
*/
package orm

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// ErrInvalidIndex is a lookup on an index the bucket does not have. The
// orm owns codes 100 to 109.
var ErrInvalidIndex = errors.Register(100, "invalid index")

// Model is an entity a Bucket can store.
type Model interface {
	docseal.Persistent
	// Validate is called before every write.
	Validate() error
	Copy() Model
}

// Indexer returns the index value of a model, nil to leave it out.
type Indexer func(Model) ([]byte, error)

// MultiKeyIndexer returns every value a model is indexed under.
type MultiKeyIndexer func(Model) ([][]byte, error)

func single(indexer Indexer) MultiKeyIndexer {
	return func(m Model) ([][]byte, error) {
		v, err := indexer(m)
		if err != nil || v == nil {
			return nil, err
		}
		return [][]byte{v}, nil
	}
}
