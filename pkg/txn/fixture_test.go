package txn

import (
	"testing"

	"github.com/stretchr/testify/require"
	storage "tiny_mvcc/pkg/c_storage"
)

type fixture struct {
	store     *storage.MemStore
	oracle    *Oracle
	mvStore   *MvStore
	conflicts *ConflictDetector
	scanBatch int
}

func newFixture(t *testing.T) *fixture {
	return newFixtureOf(t, storage.NewMemStore())
}

func newFixtureOf(t *testing.T, store *storage.MemStore) *fixture {
	var oracle, err = NewOracle(store, 16)
	require.NoError(t, err)

	var mvStore = NewMVStore(store)
	return &fixture{
		store:     store,
		oracle:    oracle,
		mvStore:   mvStore,
		conflicts: NewConflictDetector(mvStore, 8),
		scanBatch: 2,
	}
}

func (f *fixture) txn(state TransactionState) *Txn {
	return NewTxn(state, f.oracle, f.mvStore, f.conflicts, f.scanBatch)
}

func (f *fixture) begin(t *testing.T) *Txn {
	var state, err = f.oracle.Begin()
	require.NoError(t, err)
	return f.txn(state)
}

func (f *fixture) beginReadOnly(t *testing.T) *Txn {
	var state, err = f.oracle.BeginReadOnly()
	require.NoError(t, err)
	return f.txn(state)
}

func (f *fixture) beginAsOf(t *testing.T, version uint64) *Txn {
	var state, err = f.oracle.BeginAsOf(version)
	require.NoError(t, err)
	return f.txn(state)
}

// update runs |fn| in a new read-write transaction, and commits it.
func (f *fixture) update(t *testing.T, fn func(txn *Txn)) uint64 {
	var txn = f.begin(t)
	fn(txn)
	require.NoError(t, txn.Commit())
	return txn.Version()
}

func requireGet(t *testing.T, txn *Txn, key string, expect string) {
	var value, ok, err = txn.Get([]byte(key))
	require.NoError(t, err)
	if expect == "" {
		require.False(t, ok, "key %q is %q", key, value)
	} else {
		require.True(t, ok, "key %q is absent", key)
		require.Equal(t, expect, string(value))
	}
}

func pairsOf(pairs []Pair) []string {
	var out []string
	for _, p := range pairs {
		out = append(out, string(p.Key)+"="+string(p.Val))
	}
	return out
}
