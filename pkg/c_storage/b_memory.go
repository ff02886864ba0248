package storage

import (
	"bytes"
	"sync"

	"github.com/tidwall/btree"
)

// Pair is a key and its value.
type Pair struct {
	Key []byte
	Val []byte
}

// MemStore is an in-memory Store backed by a B-tree. It's not durable.
type MemStore struct {
	lock  sync.RWMutex
	btree *btree.BTreeG[Pair]
}

var _ Store = new(MemStore)

func NewMemStore() *MemStore {
	return &MemStore{
		btree: btree.NewBTreeGOptions(func(a, b Pair) bool {
			return bytes.Compare(a.Key, b.Key) < 0
		}, btree.Options{NoLocks: true}),
	}
}

func (s *MemStore) Get(key []byte) ([]byte, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res, present := s.btree.Get(Pair{Key: key})
	if !present {
		return nil, false, nil
	}
	return append([]byte(nil), res.Val...), true, nil
}

func (s *MemStore) Set(key, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	// Stored slices are never modified in place, which lets Scan hand them out.
	s.btree.Set(Pair{
		Key: append([]byte(nil), key...),
		Val: append([]byte(nil), value...),
	})
	return nil
}

func (s *MemStore) Delete(key []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.btree.Delete(Pair{Key: key})
	return nil
}

func (s *MemStore) Scan(rng Range, reverse bool, fn func(key, value []byte) bool) error {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if !reverse {
		var iter = func(kv Pair) bool {
			if !rng.AfterStart(kv.Key) {
				return true // Excluded start bound.
			}
			if !rng.BeforeEnd(kv.Key) {
				return false
			}
			return fn(kv.Key, kv.Val)
		}
		if rng.Start.Kind == Unbounded {
			s.btree.Scan(iter)
		} else {
			s.btree.Ascend(Pair{Key: rng.Start.Key}, iter)
		}
		return nil
	}

	var iter = func(kv Pair) bool {
		if !rng.BeforeEnd(kv.Key) {
			return true // Excluded end bound.
		}
		if !rng.AfterStart(kv.Key) {
			return false
		}
		return fn(kv.Key, kv.Val)
	}
	if rng.End.Kind == Unbounded {
		s.btree.Reverse(iter)
	} else {
		s.btree.Descend(Pair{Key: rng.End.Key}, iter)
	}
	return nil
}

// Len returns the number of keys held by the MemStore.
func (s *MemStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.btree.Len()
}

func (s *MemStore) Close() error { return nil }
