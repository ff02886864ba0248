package txn

import (
	"hash/fnv"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"tiny_mvcc/pkg/a_misc/errmsg"
	"tiny_mvcc/pkg/a_misc/metrics"
)

// ConflictDetector checks writes for write-write conflicts, and applies them.
// The check of a key and its write are atomic with respect to other writers
// of the key, which serialize on one of a fixed number of striped mutexes.
type ConflictDetector struct {
	mvStore *MvStore
	stripes []sync.Mutex
}

func NewConflictDetector(mvStore *MvStore, stripes int) *ConflictDetector {
	if stripes <= 0 {
		stripes = 1
	}
	return &ConflictDetector{
		mvStore: mvStore,
		stripes: make([]sync.Mutex, stripes),
	}
}

func (c *ConflictDetector) stripe(key []byte) *sync.Mutex {
	var h = fnv.New32a()
	_, _ = h.Write(key)
	return &c.stripes[h.Sum32()%uint32(len(c.stripes))]
}

// Write |value| to |key| (or a tombstone, if not |live|) at the version of
// transaction |state|, unless it conflicts.
//
// A write conflicts if the newest version of |key|, at or above the oldest
// version the transaction could fail to see, is in fact not visible to it.
// That version was written by a transaction which was either active when
// this one began, or began after it, and in both cases the writes of the two
// are concurrent.
func (c *ConflictDetector) Write(state TransactionState, key, value []byte, live bool) error {
	var mu = c.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	var latest, ok, err = c.mvStore.Latest(key, state.conflictFloor())
	if err != nil {
		return err
	} else if ok && !state.IsVisible(latest) {
		metrics.TxnConflictTotal.Inc()
		log.WithFields(log.Fields{
			"version": state.Version,
			"key":     key,
			"other":   latest,
		}).Debug("write conflict")

		return errors.WithMessagef(errmsg.WriteConflict, "key %q was written at version %d", key, latest)
	}
	return c.mvStore.Put(state.Version, key, value, live)
}
