package txn

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"tiny_mvcc/pkg/a_misc/errmsg"
	"tiny_mvcc/pkg/a_misc/metrics"
	storage "tiny_mvcc/pkg/c_storage"
	keycode "tiny_mvcc/pkg/d_keycode"
)

// Labels of metrics.TxnBeginTotal.
const (
	modeReadWrite = "read_write"
	modeReadOnly  = "read_only"
	modeAsOf      = "as_of"
)

// Oracle allocates versions and tracks active read-write transactions.
// Version allocation and every change of the ActiveSet are serialized by the
// Oracle's mutex, and are persisted to the Store before the mutex is
// released.
type Oracle struct {
	sync.Mutex
	store  storage.Store
	active *ActiveSet

	// Active snapshots are written once, when their version begins, and are
	// only read by as-of transactions.
	snapshots *lru.Cache
}

// NewOracle returns an Oracle of the Store, loading the TxActive markers it
// holds. Transactions left active by a previous Oracle remain active, and
// are excluded from the view of new transactions until they're resumed and
// finished.
func NewOracle(store storage.Store, snapshotCacheSize int) (*Oracle, error) {
	var snapshots, err = lru.New(snapshotCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating snapshot cache")
	}
	var o = &Oracle{
		store:     store,
		active:    NewActiveSet(),
		snapshots: snapshots,
	}

	var decodeErr error
	if err = store.Scan(storage.PrefixRange(keycode.TxActivePrefix()), false, func(key, _ []byte) bool {
		var decoded keycode.Key
		if decoded, decodeErr = keycode.Decode(key); decodeErr != nil {
			return false
		} else if marker, ok := decoded.(keycode.TxActiveKey); !ok {
			decodeErr = errors.WithMessagef(errmsg.CorruptRecord, "unexpected %s within TxActive markers", decoded)
			return false
		} else {
			o.active.Add(marker.Version)
			return true
		}
	}); err != nil {
		return nil, errors.WithMessage(err, "loading active transactions")
	} else if decodeErr != nil {
		log.WithField("err", decodeErr).Error("failed to load active transactions")
		return nil, decodeErr
	}

	next, err := o.nextVersion()
	if err != nil {
		return nil, err
	}
	metrics.NextVersion.Set(float64(next))
	metrics.TxnActive.Set(float64(o.active.Len()))

	if o.active.Len() != 0 {
		log.WithFields(log.Fields{
			"active": o.active.Versions(0),
			"next":   next,
		}).Info("recovered active transactions")
	}
	return o, nil
}

// nextVersion reads the persisted next version. Before the first allocation
// there is none, and the next version is 1.
func (o *Oracle) nextVersion() (uint64, error) {
	var b, ok, err = o.store.Get(keycode.NextVersionKey{}.Encode())
	if err != nil {
		return 0, errors.WithMessage(err, "reading next version")
	} else if !ok {
		return 1, nil
	}
	return keycode.DecodeVersion(b)
}

// Begin a read-write transaction at a newly allocated version. Its excluded
// versions are those of all other active transactions.
func (o *Oracle) Begin() (TransactionState, error) {
	o.Lock()
	defer o.Unlock()

	var version, err = o.nextVersion()
	if err != nil {
		return TransactionState{}, err
	}
	return o.begin(version)
}

// BeginAt begins a read-write transaction at exactly |version|, which must
// not yet be allocated. Versions skipped to reach it are never begun, and
// are visible to later transactions as committed versions having no writes.
func (o *Oracle) BeginAt(version uint64) (TransactionState, error) {
	o.Lock()
	defer o.Unlock()

	var next, err = o.nextVersion()
	if err != nil {
		return TransactionState{}, err
	} else if version < next {
		return TransactionState{}, errors.Errorf("version %d is already allocated", version)
	}
	return o.begin(version)
}

// begin allocates |version| and everything below it, and marks |version|
// active. The Oracle must be locked.
func (o *Oracle) begin(version uint64) (TransactionState, error) {
	if err := o.store.Set(keycode.NextVersionKey{}.Encode(), keycode.EncodeVersion(version+1)); err != nil {
		return TransactionState{}, errors.WithMessage(err, "persisting next version")
	}

	var state = TransactionState{Version: version, Excluded: o.active.Versions(version)}

	if len(state.Excluded) != 0 {
		if err := o.store.Set(keycode.TxActiveSnapshotKey{Version: version}.Encode(),
			keycode.EncodeVersionSet(state.Excluded)); err != nil {
			return TransactionState{}, errors.WithMessage(err, "persisting active snapshot")
		}
		o.snapshots.Add(version, state.Excluded)
	}
	if err := o.store.Set(keycode.TxActiveKey{Version: version}.Encode(), nil); err != nil {
		return TransactionState{}, errors.WithMessage(err, "persisting active marker")
	}
	o.active.Add(version)

	metrics.TxnBeginTotal.WithLabelValues(modeReadWrite).Inc()
	metrics.TxnActive.Set(float64(o.active.Len()))
	metrics.NextVersion.Set(float64(version + 1))

	log.WithFields(log.Fields{
		"version":  version,
		"excluded": state.Excluded,
	}).Debug("began transaction")

	return state, nil
}

// BeginReadOnly returns the state of a read-only transaction which views the
// latest version. It sees every version before the next one to be allocated,
// except those currently active.
func (o *Oracle) BeginReadOnly() (TransactionState, error) {
	o.Lock()
	defer o.Unlock()

	var version, err = o.nextVersion()
	if err != nil {
		return TransactionState{}, err
	}
	metrics.TxnBeginTotal.WithLabelValues(modeReadOnly).Inc()

	return TransactionState{
		Version:  version,
		ReadOnly: true,
		Excluded: o.active.Versions(0),
	}, nil
}

// BeginAsOf returns the state of a read-only transaction which views the
// keyspace as the read-write transaction at |version| did when it began.
func (o *Oracle) BeginAsOf(version uint64) (TransactionState, error) {
	var next, err = o.nextVersion()
	if err != nil {
		return TransactionState{}, err
	} else if version >= next {
		return TransactionState{}, errors.WithMessagef(errmsg.VersionNotFound,
			"version %d (next version is %d)", version, next)
	}

	excluded, err := o.activeSnapshot(version)
	if err != nil {
		return TransactionState{}, err
	}
	metrics.TxnBeginTotal.WithLabelValues(modeAsOf).Inc()

	return TransactionState{Version: version, ReadOnly: true, Excluded: excluded}, nil
}

func (o *Oracle) activeSnapshot(version uint64) ([]uint64, error) {
	if cached, ok := o.snapshots.Get(version); ok {
		return cached.([]uint64), nil
	}

	var b, ok, err = o.store.Get(keycode.TxActiveSnapshotKey{Version: version}.Encode())
	if err != nil {
		return nil, errors.WithMessagef(err, "reading active snapshot of version %d", version)
	} else if !ok {
		return nil, nil // Nothing was active.
	}

	versions, err := keycode.DecodeVersionSet(b)
	if err != nil {
		log.WithFields(log.Fields{"version": version, "err": err}).Error("corrupt active snapshot")
		return nil, err
	}
	o.snapshots.Add(version, versions)
	return versions, nil
}

// IsActive returns whether |version| is an active read-write transaction.
func (o *Oracle) IsActive(version uint64) bool {
	o.Lock()
	defer o.Unlock()

	return o.active.Contains(version)
}

// Finish the active read-write transaction at |version|, removing its
// active marker. Its writes must already have been committed or undone.
func (o *Oracle) Finish(version uint64) error {
	o.Lock()
	defer o.Unlock()

	if !o.active.Contains(version) {
		return errors.WithMessagef(errmsg.InvalidState, "version %d is not active", version)
	}
	if err := o.store.Delete(keycode.TxActiveKey{Version: version}.Encode()); err != nil {
		return errors.WithMessage(err, "removing active marker")
	}
	o.active.Remove(version)
	metrics.TxnActive.Set(float64(o.active.Len()))

	return nil
}

// WaitSettled blocks until no read-write transaction at or below |version|
// remains active, or the Context is done.
func (o *Oracle) WaitSettled(ctx context.Context, version uint64) error {
	o.Lock()
	if o.active.Settled() >= version {
		o.Unlock()
		return nil
	}
	var waitCh = make(chan struct{})
	o.active.AddWaiter(version, waitCh)
	o.Unlock()

	select {
	case <-ctx.Done():
		o.Lock()
		o.active.RemoveWaiter(version, waitCh)
		o.Unlock()
		return ctx.Err()
	case <-waitCh:
		return nil
	}
}

// Status returns the number of allocated versions and active transactions.
func (o *Oracle) Status() (Status, error) {
	o.Lock()
	defer o.Unlock()

	var next, err = o.nextVersion()
	if err != nil {
		return Status{}, err
	}
	return Status{
		Versions:   next - 1,
		ActiveTxns: uint64(o.active.Len()),
	}, nil
}
