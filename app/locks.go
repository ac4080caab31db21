package app

import (
	"bytes"
	"sort"
	"sync"
)

// keyLocks serializes transactions that declare the same state keys.
// Transactions that cannot declare their keys take the exclusive lock and
// run alone.
type keyLocks struct {
	global sync.RWMutex

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	// refs is the number of holders and waiters, guarded by keyLocks.mu.
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// exclusive blocks until no other transaction runs.
func (l *keyLocks) exclusive() (release func()) {
	l.global.Lock()
	return l.global.Unlock
}

// acquire blocks until all given keys are locked. Keys are always locked
// in the same order, so two transactions can never wait for each other.
func (l *keyLocks) acquire(keys [][]byte) (release func()) {
	l.global.RLock()

	keys = sortedUnique(keys)
	held := make([]*keyLock, len(keys))
	for i, k := range keys {
		held[i] = l.ref(string(k))
		held[i].Lock()
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.unref(string(keys[i]), held[i])
		}
		l.global.RUnlock()
	}
}

func (l *keyLocks) ref(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *keyLocks) unref(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// size returns the number of keys currently locked or waited for.
func (l *keyLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func sortedUnique(keys [][]byte) [][]byte {
	res := make([][]byte, len(keys))
	copy(res, keys)
	sort.Slice(res, func(i, j int) bool { return bytes.Compare(res[i], res[j]) < 0 })
	for i := len(res) - 1; i > 0; i-- {
		if bytes.Equal(res[i], res[i-1]) {
			res = append(res[:i], res[i+1:]...)
		}
	}
	return res
}
