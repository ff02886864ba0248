package db

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"tiny_mvcc/pkg/a_misc/errmsg"
	storage "tiny_mvcc/pkg/c_storage"
	keycode "tiny_mvcc/pkg/d_keycode"
	"tiny_mvcc/pkg/txn"
)

// Config of a Db.
type Config struct {
	Store storage.Config `group:"Store" namespace:"store" env-namespace:"STORE"`

	ScanBatchSize     int `long:"scan-batch-size" env:"SCAN_BATCH_SIZE" default:"128" description:"Number of versioned records pulled from the store per scan batch"`
	KeyStripes        int `long:"key-stripes" env:"KEY_STRIPES" default:"256" description:"Number of mutexes which serialize conflict checks of keys"`
	SnapshotCacheSize int `long:"snapshot-cache-size" env:"SNAPSHOT_CACHE_SIZE" default:"1024" description:"Number of active-transaction snapshots cached for as-of transactions"`
}

// DefaultConfig returns the Config of an in-memory Db.
func DefaultConfig() Config {
	return Config{
		Store:             storage.Config{Backend: "memory"},
		ScanBatchSize:     128,
		KeyStripes:        256,
		SnapshotCacheSize: 1024,
	}
}

// Db is a multi-version transactional key-value engine over an ordered Store.
type Db struct {
	stopped   atomic.Bool
	store     storage.Store
	oracle    *txn.Oracle
	mvStore   *txn.MvStore
	conflicts *txn.ConflictDetector
	scanBatch int
}

// Open the Store of the Config, and a Db of it.
func Open(cfg Config) (*Db, error) {
	var store, err = storage.Open(cfg.Store)
	if err != nil {
		return nil, err
	}
	db, err := New(store, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return db, nil
}

// New returns a Db of the Store.
func New(store storage.Store, cfg Config) (*Db, error) {
	if cfg.SnapshotCacheSize <= 0 {
		cfg.SnapshotCacheSize = DefaultConfig().SnapshotCacheSize
	}
	var oracle, err = txn.NewOracle(store, cfg.SnapshotCacheSize)
	if err != nil {
		return nil, err
	}
	var mvStore = txn.NewMVStore(store)

	return &Db{
		store:     store,
		oracle:    oracle,
		mvStore:   mvStore,
		conflicts: txn.NewConflictDetector(mvStore, cfg.KeyStripes),
		scanBatch: cfg.ScanBatchSize,
	}, nil
}

func (db *Db) newTxn(state txn.TransactionState) *txn.Txn {
	return txn.NewTxn(state, db.oracle, db.mvStore, db.conflicts, db.scanBatch)
}

// Begin a read-write transaction.
func (db *Db) Begin() (*txn.Txn, error) {
	if db.stopped.Load() {
		return nil, errmsg.Stopped
	}
	var state, err = db.oracle.Begin()
	if err != nil {
		return nil, err
	}
	return db.newTxn(state), nil
}

// BeginReadOnly begins a read-only transaction of the latest version.
func (db *Db) BeginReadOnly() (*txn.Txn, error) {
	if db.stopped.Load() {
		return nil, errmsg.Stopped
	}
	var state, err = db.oracle.BeginReadOnly()
	if err != nil {
		return nil, err
	}
	return db.newTxn(state), nil
}

// BeginAsOf begins a read-only transaction which sees what the read-write
// transaction of |version| saw when it began.
func (db *Db) BeginAsOf(version uint64) (*txn.Txn, error) {
	if db.stopped.Load() {
		return nil, errmsg.Stopped
	}
	var state, err = db.oracle.BeginAsOf(version)
	if err != nil {
		return nil, err
	}
	return db.newTxn(state), nil
}

// Resume a transaction from its TransactionState. A read-write transaction
// must still be active.
func (db *Db) Resume(state txn.TransactionState) (*txn.Txn, error) {
	if db.stopped.Load() {
		return nil, errmsg.Stopped
	}
	if !state.ReadOnly && !db.oracle.IsActive(state.Version) {
		return nil, errors.WithMessagef(errmsg.InvalidState, "version %d is not active", state.Version)
	}
	return db.newTxn(state), nil
}

// View runs |fn| in a read-only transaction.
func (db *Db) View(fn func(txn *txn.Txn) error) error {
	var newTxn, err = db.BeginReadOnly()
	if err != nil {
		return err
	}
	defer func() { _ = newTxn.Commit() }()

	return fn(newTxn)
}

// Update runs |fn| in a read-write transaction, and commits it. The
// transaction is rolled back if |fn| fails or the Context is done.
func (db *Db) Update(ctx context.Context, fn func(txn *txn.Txn) error) error {
	var newTxn, err = db.Begin()
	if err != nil {
		return err
	}

	if err = fn(newTxn); err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if rbErr := newTxn.Rollback(); rbErr != nil {
			log.WithFields(log.Fields{
				"version": newTxn.Version(),
				"err":     rbErr,
			}).Error("failed to roll back transaction")
		}
		return err
	}
	return newTxn.Commit()
}

// Import runs |fn| in a read-write transaction at exactly |version|, which
// must not yet be allocated, and commits it. Versions skipped to reach it
// are committed without writes.
func (db *Db) Import(version uint64, fn func(txn *txn.Txn) error) error {
	if db.stopped.Load() {
		return errmsg.Stopped
	}
	var state, err = db.oracle.BeginAt(version)
	if err != nil {
		return err
	}
	var newTxn = db.newTxn(state)

	if err = fn(newTxn); err != nil {
		_ = newTxn.Rollback()
		return err
	}
	return newTxn.Commit()
}

// GetAsOf returns the value |key| had at |version|, regardless of whether
// the transaction which wrote it committed.
func (db *Db) GetAsOf(key []byte, version uint64) ([]byte, bool, error) {
	if db.stopped.Load() {
		return nil, false, errmsg.Stopped
	}
	return db.mvStore.GetAsOf(key, version)
}

// Writes returns the keys written at |version|.
func (db *Db) Writes(version uint64) ([][]byte, error) {
	if db.stopped.Load() {
		return nil, errmsg.Stopped
	}
	return db.mvStore.Writes(version)
}

func (db *Db) GetUnversioned(key []byte) ([]byte, bool, error) {
	if db.stopped.Load() {
		return nil, false, errmsg.Stopped
	}
	return db.mvStore.GetUnversioned(key)
}

func (db *Db) SetUnversioned(key, value []byte) error {
	if db.stopped.Load() {
		return errmsg.Stopped
	} else if len(key) == 0 {
		return errmsg.KeyIsEmpty
	}
	return db.mvStore.SetUnversioned(key, value)
}

// Status returns the number of allocated versions and active transactions.
func (db *Db) Status() (txn.Status, error) {
	if db.stopped.Load() {
		return txn.Status{}, errmsg.Stopped
	}
	return db.oracle.Status()
}

// WaitSettled blocks until no read-write transaction at or below |version|
// is active.
func (db *Db) WaitSettled(ctx context.Context, version uint64) error {
	return db.oracle.WaitSettled(ctx, version)
}

// Record is a decoded record of the Store.
type Record struct {
	Key   keycode.Key
	Value []byte
}

// Dump returns every record of the Store, in key order.
func (db *Db) Dump() ([]Record, error) {
	if db.stopped.Load() {
		return nil, errmsg.Stopped
	}
	var out []Record
	var decodeErr error

	var err = db.store.Scan(storage.All, false, func(key, value []byte) bool {
		var decoded keycode.Key
		if decoded, decodeErr = keycode.Decode(key); decodeErr != nil {
			return false
		}
		out = append(out, Record{Key: decoded, Value: append([]byte(nil), value...)})
		return true
	})
	if err == nil {
		err = decodeErr
	}
	return out, err
}

// Store returns the underlying Store.
func (db *Db) Store() storage.Store { return db.store }

// Stop the Db and close its Store. Transactions which remain active are
// recovered as active by the next Db of the Store.
func (db *Db) Stop() error {
	if db.stopped.CompareAndSwap(false, true) {
		return db.store.Close()
	}
	return nil
}
