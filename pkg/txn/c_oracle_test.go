package txn

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tiny_mvcc/pkg/a_misc/errmsg"
	keycode "tiny_mvcc/pkg/d_keycode"
)

func TestOracleAllocatesIncreasingVersions(t *testing.T) {
	var f = newFixture(t)

	var t1, t2 = f.begin(t), f.begin(t)
	assert.Equal(t, TransactionState{Version: 1}, t1.State())
	assert.Equal(t, TransactionState{Version: 2, Excluded: []uint64{1}}, t2.State())

	require.NoError(t, t1.Commit())
	var t3 = f.begin(t)
	assert.Equal(t, TransactionState{Version: 3, Excluded: []uint64{2}}, t3.State())

	require.NoError(t, t3.Rollback())
	var t4 = f.begin(t)
	assert.Equal(t, uint64(4), t4.Version())

	// Read-only transactions don't allocate.
	var ro = f.beginReadOnly(t)
	assert.Equal(t, TransactionState{Version: 5, ReadOnly: true, Excluded: []uint64{2, 4}}, ro.State())
	assert.Equal(t, uint64(5), f.begin(t).Version())

	var status, err = f.oracle.Status()
	require.NoError(t, err)
	assert.Equal(t, Status{Versions: 5, ActiveTxns: 3}, status)
}

func TestOracleBeginsAtExplicitVersions(t *testing.T) {
	var f = newFixture(t)
	var t1 = f.begin(t)

	var state, err = f.oracle.BeginAt(5)
	require.NoError(t, err)
	assert.Equal(t, TransactionState{Version: 5, Excluded: []uint64{1}}, state)

	// Allocated versions, including skipped ones, can't be begun again.
	for _, version := range []uint64{1, 3, 5} {
		_, err = f.oracle.BeginAt(version)
		assert.EqualError(t, err, fmt.Sprintf("version %d is already allocated", version))
	}
	status, err := f.oracle.Status()
	require.NoError(t, err)
	assert.Equal(t, Status{Versions: 5, ActiveTxns: 2}, status)

	// Skipped versions were never active.
	assert.False(t, f.oracle.IsActive(3))
	var asOf = f.beginAsOf(t, 3)
	assert.Equal(t, TransactionState{Version: 3, ReadOnly: true}, asOf.State())

	require.NoError(t, t1.Commit())
	require.NoError(t, f.txn(state).Commit())
	assert.Equal(t, TransactionState{Version: 6}, f.begin(t).State())
}

func TestOraclePersistsSnapshotsAndMarkers(t *testing.T) {
	var f = newFixture(t)

	var t1, t2 = f.begin(t), f.begin(t)
	require.NoError(t, t2.Commit())

	var _, ok, err = f.store.Get(keycode.TxActiveKey{Version: 1}.Encode())
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = f.store.Get(keycode.TxActiveKey{Version: 2}.Encode())
	require.NoError(t, err)
	assert.False(t, ok)

	snapshot, ok, err := f.store.Get(keycode.TxActiveSnapshotKey{Version: 2}.Encode())
	require.NoError(t, err)
	require.True(t, ok)
	versions, err := keycode.DecodeVersionSet(snapshot)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, versions)

	// No snapshot is written when nothing else was active.
	_, ok, err = f.store.Get(keycode.TxActiveSnapshotKey{Version: 1}.Encode())
	require.NoError(t, err)
	assert.False(t, ok)

	// A new Oracle of the store recovers the still-active transaction.
	var recovered = newFixtureOf(t, f.store)
	assert.True(t, recovered.oracle.IsActive(t1.Version()))
	assert.False(t, recovered.oracle.IsActive(t2.Version()))

	var t3 = recovered.begin(t)
	assert.Equal(t, TransactionState{Version: 3, Excluded: []uint64{1}}, t3.State())

	// The snapshot of version 2 is read from the store, not the cache.
	as, err := recovered.oracle.BeginAsOf(2)
	require.NoError(t, err)
	assert.Equal(t, TransactionState{Version: 2, ReadOnly: true, Excluded: []uint64{1}}, as)
}

func TestOracleAsOfRequiresAllocatedVersion(t *testing.T) {
	var f = newFixture(t)

	var _, err = f.oracle.BeginAsOf(1)
	require.ErrorIs(t, err, errmsg.VersionNotFound)

	f.begin(t)
	state, err := f.oracle.BeginAsOf(1)
	require.NoError(t, err)
	assert.Equal(t, TransactionState{Version: 1, ReadOnly: true}, state)

	_, err = f.oracle.BeginAsOf(2)
	require.ErrorIs(t, err, errmsg.VersionNotFound)
}

func TestOracleFinishRequiresActive(t *testing.T) {
	var f = newFixture(t)
	require.ErrorIs(t, f.oracle.Finish(1), errmsg.InvalidState)

	var t1 = f.begin(t)
	require.NoError(t, f.oracle.Finish(t1.Version()))
	require.ErrorIs(t, f.oracle.Finish(t1.Version()), errmsg.InvalidState)
}

func TestOracleWaitSettled(t *testing.T) {
	var f = newFixture(t)
	var ctx = context.Background()

	require.NoError(t, f.oracle.WaitSettled(ctx, 10)) // Nothing is active.

	var t1, t2 = f.begin(t), f.begin(t)
	require.NoError(t, t2.Commit())

	var done = make(chan error)
	go func() { done <- f.oracle.WaitSettled(ctx, t2.Version()) }()

	select {
	case <-done:
		require.Fail(t, "returned before version 1 finished")
	case <-time.After(10 * time.Millisecond):
	}
	require.NoError(t, t1.Commit())
	require.NoError(t, <-done)

	// Waiting is cancelled with its Context.
	var t3 = f.begin(t)
	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, f.oracle.WaitSettled(cancelCtx, t3.Version()), context.Canceled)

	f.oracle.Lock()
	assert.Empty(t, f.oracle.active.waiters)
	f.oracle.Unlock()
}
