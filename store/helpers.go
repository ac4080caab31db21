package store

// SliceIterator walks a preloaded slice of models.
type SliceIterator struct {
	models []Model
	pos    int
}

var _ Iterator = (*SliceIterator)(nil)

func NewSliceIterator(models []Model) *SliceIterator {
	return &SliceIterator{models: models}
}

func (it *SliceIterator) Valid() bool {
	return it.pos < len(it.models)
}

func (it *SliceIterator) Next() error {
	it.current()
	it.pos++
	return nil
}

func (it *SliceIterator) Key() []byte   { return it.current().Key }
func (it *SliceIterator) Value() []byte { return it.current().Value }

func (it *SliceIterator) Close() {
	it.models = nil
}

func (it *SliceIterator) current() Model {
	if !it.Valid() {
		panic("iterator exhausted")
	}
	return it.models[it.pos]
}

// EmptyKVStore holds nothing and drops every write. Cache wraps over it
// make throwaway stores.
type EmptyKVStore struct{}

var _ KVStore = EmptyKVStore{}

func (EmptyKVStore) Get([]byte) ([]byte, error)  { return nil, nil }
func (EmptyKVStore) Has([]byte) (bool, error)    { return false, nil }
func (EmptyKVStore) Set(key, value []byte) error { return nil }
func (EmptyKVStore) Delete(key []byte) error     { return nil }

func (EmptyKVStore) Iterator(start, end []byte) (Iterator, error) {
	return NewSliceIterator(nil), nil
}

func (EmptyKVStore) ReverseIterator(start, end []byte) (Iterator, error) {
	return NewSliceIterator(nil), nil
}

func (e EmptyKVStore) NewBatch() Batch {
	return NewNonAtomicBatch(e)
}

// Op is a queued write.
type Op struct {
	key    []byte
	value  []byte
	delete bool
}

func SetOp(key, value []byte) Op { return Op{key: key, value: value} }
func DelOp(key []byte) Op        { return Op{key: key, delete: true} }

func (o Op) IsSetOp() bool { return !o.delete }
func (o Op) Key() []byte   { return o.key }

// Apply performs the write on out.
func (o Op) Apply(out SetDeleter) error {
	if o.delete {
		return out.Delete(o.key)
	}
	return out.Set(o.key, o.value)
}

// NonAtomicBatch replays its ops one by one on Write. Only use it over a
// store no other goroutine writes to, like a cache wrap.
type NonAtomicBatch struct {
	out SetDeleter
	ops []Op
}

var _ Batch = (*NonAtomicBatch)(nil)

func NewNonAtomicBatch(out SetDeleter) *NonAtomicBatch {
	return &NonAtomicBatch{out: out}
}

func (b *NonAtomicBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

func (b *NonAtomicBatch) Delete(key []byte) error {
	b.ops = append(b.ops, DelOp(key))
	return nil
}

// Len is the number of queued ops.
func (b *NonAtomicBatch) Len() int {
	return len(b.ops)
}

// Write applies the queued ops in order and empties the batch. It stops at
// the first failure.
func (b *NonAtomicBatch) Write() error {
	for _, op := range b.ops {
		if err := op.Apply(b.out); err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}
