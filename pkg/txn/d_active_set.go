package txn

import (
	"github.com/tidwall/btree"
)

// ActiveSet tracks the versions of active read-write transactions, and
// waiters for those versions to settle. It's not synchronized: the Oracle
// guards it with its own mutex.
type ActiveSet struct {
	versions *btree.BTreeG[uint64]
	waiters  map[uint64][]chan struct{} // version -> waitChs
}

func NewActiveSet() *ActiveSet {
	return &ActiveSet{
		versions: btree.NewBTreeGOptions(func(a, b uint64) bool { return a < b },
			btree.Options{NoLocks: true}),
		waiters: make(map[uint64][]chan struct{}),
	}
}

func (s *ActiveSet) Add(version uint64) { s.versions.Set(version) }

// Remove |version|, and wake any waiters which have now settled.
func (s *ActiveSet) Remove(version uint64) {
	s.versions.Delete(version)
	s.CloseWaitersUntil(s.Settled())
}

func (s *ActiveSet) Contains(version uint64) bool {
	var _, ok = s.versions.Get(version)
	return ok
}

func (s *ActiveSet) Len() int { return s.versions.Len() }

// Versions returns the ascending active versions, omitting |except|.
func (s *ActiveSet) Versions(except uint64) []uint64 {
	var out = make([]uint64, 0, s.versions.Len())
	s.versions.Scan(func(v uint64) bool {
		if v != except {
			out = append(out, v)
		}
		return true
	})
	return out
}

// Settled returns the largest version at or below which no read-write
// transaction is active, or MaxUint64 if none are.
func (s *ActiveSet) Settled() uint64 {
	if oldest, ok := s.versions.Min(); ok {
		return oldest - 1
	}
	return ^uint64(0)
}

// AddWaiter registers |ch| to be closed once |version| has settled.
func (s *ActiveSet) AddWaiter(version uint64, ch chan struct{}) {
	s.waiters[version] = append(s.waiters[version], ch)
}

// CloseWaitersUntil closes the channels of waiters at or below |untilVersion|.
func (s *ActiveSet) CloseWaitersUntil(untilVersion uint64) {
	for version, waiter := range s.waiters {
		if version <= untilVersion {
			for _, ch := range waiter {
				close(ch)
			}
			delete(s.waiters, version)
		}
	}
}

// RemoveWaiter unregisters |ch|, which is not closed.
func (s *ActiveSet) RemoveWaiter(version uint64, ch chan struct{}) {
	var waiter = s.waiters[version]
	for i := range waiter {
		if waiter[i] == ch {
			waiter = append(waiter[:i], waiter[i+1:]...)
			break
		}
	}
	if len(waiter) == 0 {
		delete(s.waiters, version)
	} else {
		s.waiters[version] = waiter
	}
}
