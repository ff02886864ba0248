package txn

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"tiny_mvcc/pkg/a_misc/errmsg"
	"tiny_mvcc/pkg/a_misc/metrics"
	storage "tiny_mvcc/pkg/c_storage"
)

// Txn is a transaction. Read-write transactions write at their own version
// as they go, and see their own writes. A Txn is not safe for concurrent use.
type Txn struct {
	state     TransactionState
	status    txnStatus
	oracle    *Oracle
	mvStore   *MvStore
	conflicts *ConflictDetector
	scanBatch int
}

func NewTxn(state TransactionState, oracle *Oracle, mvStore *MvStore, conflicts *ConflictDetector, scanBatch int) *Txn {
	return &Txn{
		state:     state,
		oracle:    oracle,
		mvStore:   mvStore,
		conflicts: conflicts,
		scanBatch: scanBatch,
	}
}

func (txn *Txn) Version() uint64 { return txn.state.Version }
func (txn *Txn) ReadOnly() bool  { return txn.state.ReadOnly }

// State returns the TransactionState of the Txn, which may be used to Resume it.
func (txn *Txn) State() TransactionState {
	var out = txn.state
	out.Excluded = append([]uint64(nil), txn.state.Excluded...)
	return out
}

func (txn *Txn) checkActive() error {
	switch txn.status {
	case statusCommitted:
		return errors.WithMessagef(errmsg.InvalidState, "version %d is committed", txn.state.Version)
	case statusRolledBack:
		return errors.WithMessagef(errmsg.InvalidState, "version %d is rolled back", txn.state.Version)
	}
	return nil
}

// Get returns the value of |key|, and whether it exists.
func (txn *Txn) Get(key []byte) ([]byte, bool, error) {
	if err := txn.checkActive(); err != nil {
		return nil, false, err
	}
	return txn.mvStore.Get(key, txn.state)
}

// Set |key| to |value|.
func (txn *Txn) Set(key, value []byte) error {
	return txn.write(key, value, true)
}

// Remove |key|. Removing a missing key is not an error.
func (txn *Txn) Remove(key []byte) error {
	return txn.write(key, nil, false)
}

func (txn *Txn) write(key, value []byte, live bool) error {
	if err := txn.checkActive(); err != nil {
		return err
	} else if txn.state.ReadOnly {
		return errors.WithMessagef(errmsg.ReadOnly, "version %d", txn.state.Version)
	} else if len(key) == 0 {
		return errmsg.KeyIsEmpty
	}
	return txn.conflicts.Write(txn.state, key, value, live)
}

// Scan returns the visible pairs of the range of user keys |rng|, in
// ascending key order or descending if |reverse|.
func (txn *Txn) Scan(rng storage.Range, reverse bool) ([]Pair, error) {
	var it, err = txn.NewScanIterator(rng, reverse)
	if err != nil {
		return nil, err
	}
	return collect(it)
}

// ScanPrefix returns the visible pairs having keys which begin with |prefix|.
func (txn *Txn) ScanPrefix(prefix []byte, reverse bool) ([]Pair, error) {
	var it, err = txn.NewPrefixIterator(prefix, reverse)
	if err != nil {
		return nil, err
	}
	return collect(it)
}

// NewScanIterator returns a ScanIterator over the range of user keys |rng|.
func (txn *Txn) NewScanIterator(rng storage.Range, reverse bool) (*ScanIterator, error) {
	if err := txn.checkActive(); err != nil {
		return nil, err
	}
	return NewScanIterator(txn.mvStore, txn.state, rng, reverse, txn.scanBatch), nil
}

// NewPrefixIterator returns a ScanIterator over user keys having |prefix|.
func (txn *Txn) NewPrefixIterator(prefix []byte, reverse bool) (*ScanIterator, error) {
	if err := txn.checkActive(); err != nil {
		return nil, err
	}
	var it = NewScanIterator(txn.mvStore, txn.state, storage.All, reverse, txn.scanBatch)
	it.rng = prefixRange(prefix)
	return it, nil
}

func collect(it *ScanIterator) ([]Pair, error) {
	var out []Pair
	for it.Next() {
		out = append(out, it.Pair())
	}
	return out, it.Err()
}

// Commit the transaction. Its writes are already in place, and become
// visible to transactions which begin after it.
func (txn *Txn) Commit() error {
	if err := txn.checkActive(); err != nil {
		return err
	}
	if !txn.state.ReadOnly {
		if err := txn.oracle.Finish(txn.state.Version); err != nil {
			return err
		}
		metrics.TxnCommitTotal.Inc()
		log.WithField("version", txn.state.Version).Debug("committed transaction")
	}
	txn.status = statusCommitted
	return nil
}

// Rollback the transaction, removing every write it made. Rollback may be
// called once, and not after Commit.
func (txn *Txn) Rollback() error {
	if err := txn.checkActive(); err != nil {
		return err
	}
	if !txn.state.ReadOnly {
		var undone, err = txn.mvStore.Undo(txn.state.Version)
		if err != nil {
			return errors.WithMessagef(err, "rolling back version %d", txn.state.Version)
		}
		if err = txn.oracle.Finish(txn.state.Version); err != nil {
			return err
		}
		metrics.TxnRollbackTotal.Inc()
		metrics.TxnRollbackWritesTotal.Add(float64(undone))
		log.WithFields(log.Fields{
			"version": txn.state.Version,
			"writes":  undone,
		}).Debug("rolled back transaction")
	}
	txn.status = statusRolledBack
	return nil
}
