package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	storage "tiny_mvcc/pkg/c_storage"
)

// scanFixture builds versions of a few keys, with version 3 left active.
func scanFixture(t *testing.T) (*fixture, *Txn) {
	var f = newFixture(t)
	var set = func(txn *Txn, key, value string) {
		require.NoError(t, txn.Set([]byte(key), []byte(value)))
	}

	f.update(t, func(txn *Txn) {
		set(txn, "a", "a1")
		set(txn, "b", "b1")
		set(txn, "c", "c1")
		set(txn, "d", "d1")
	})
	f.update(t, func(txn *Txn) {
		set(txn, "b", "b2")
		require.NoError(t, txn.Remove([]byte("c")))
	})
	var t3 = f.begin(t)
	set(t3, "a", "a3")
	set(t3, "e", "e3")

	f.update(t, func(txn *Txn) {
		set(txn, "d", "d4")
		set(txn, "ba", "ba4")
	})
	return f, t3
}

func TestScanVisibilityAcrossBatchSizes(t *testing.T) {
	for _, batch := range []int{1, 2, 3, 100} {
		var f, t3 = scanFixture(t)
		f.scanBatch = batch
		t3.scanBatch = batch
		var ro = f.beginReadOnly(t)

		for _, tc := range []struct {
			txn    *Txn
			expect []string
		}{
			{ro, []string{"a=a1", "b=b2", "ba=ba4", "d=d4"}},
			{t3, []string{"a=a3", "b=b2", "d=d1", "e=e3"}},
			{f.beginAsOf(t, 2), []string{"a=a1", "b=b1", "c=c1", "d=d1"}},
		} {
			var pairs, err = tc.txn.Scan(storage.All, false)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, pairsOf(pairs), "batch %d", batch)

			pairs, err = tc.txn.Scan(storage.All, true)
			require.NoError(t, err)
			assert.Equal(t, reversed(tc.expect), pairsOf(pairs), "batch %d", batch)
		}
	}
}

func TestScanRanges(t *testing.T) {
	var f, _ = scanFixture(t)
	var ro = f.beginReadOnly(t)

	var key = func(s string) []byte { return []byte(s) }

	for _, tc := range []struct {
		rng    storage.Range
		expect []string
	}{
		{storage.Range{Start: storage.Include(key("b")), End: storage.Exclude(key("d"))},
			[]string{"b=b2", "ba=ba4"}},
		{storage.Range{Start: storage.Include(key("b")), End: storage.Include(key("d"))},
			[]string{"b=b2", "ba=ba4", "d=d4"}},
		{storage.Range{Start: storage.Exclude(key("b")), End: storage.Include(key("d"))},
			[]string{"ba=ba4", "d=d4"}},
		{storage.Range{Start: storage.Exclude(key("a"))},
			[]string{"b=b2", "ba=ba4", "d=d4"}},
		{storage.Range{End: storage.Exclude(key("b"))},
			[]string{"a=a1"}},
		{storage.Range{Start: storage.Include(key("bb")), End: storage.Exclude(key("c"))},
			nil},
	} {
		var pairs, err = ro.Scan(tc.rng, false)
		require.NoError(t, err)
		assert.Equal(t, tc.expect, pairsOf(pairs))

		pairs, err = ro.Scan(tc.rng, true)
		require.NoError(t, err)
		assert.Equal(t, reversed(tc.expect), pairsOf(pairs))
	}

	for _, tc := range []struct {
		prefix string
		expect []string
	}{
		{"b", []string{"b=b2", "ba=ba4"}},
		{"ba", []string{"ba=ba4"}},
		{"", []string{"a=a1", "b=b2", "ba=ba4", "d=d4"}},
		{"c", nil},
		{"z", nil},
	} {
		var pairs, err = ro.ScanPrefix([]byte(tc.prefix), false)
		require.NoError(t, err)
		assert.Equal(t, tc.expect, pairsOf(pairs))

		pairs, err = ro.ScanPrefix([]byte(tc.prefix), true)
		require.NoError(t, err)
		assert.Equal(t, reversed(tc.expect), pairsOf(pairs))
	}
}

func TestScanPreventsPhantoms(t *testing.T) {
	var f, _ = scanFixture(t)
	var reader = f.begin(t)

	var before, err = reader.Scan(storage.All, false)
	require.NoError(t, err)
	reverseBefore, err := reader.Scan(storage.All, true)
	require.NoError(t, err)

	f.update(t, func(txn *Txn) {
		require.NoError(t, txn.Set([]byte("bb"), []byte("new")))
		require.NoError(t, txn.Set([]byte("0"), []byte("new")))
		require.NoError(t, txn.Remove([]byte("b")))
	})

	after, err := reader.Scan(storage.All, false)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	reverseAfter, err := reader.Scan(storage.All, true)
	require.NoError(t, err)
	assert.Equal(t, reverseBefore, reverseAfter)
}

func TestScanIteratorSeesOwnWrites(t *testing.T) {
	var f, _ = scanFixture(t)
	var txn = f.begin(t)
	require.NoError(t, txn.Set([]byte("b"), []byte("mine")))
	require.NoError(t, txn.Remove([]byte("d")))

	var it, err = txn.NewPrefixIterator(nil, false)
	require.NoError(t, err)

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Pair().Key)+"="+string(it.Pair().Val))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"a=a1", "b=mine", "ba=ba4"}, keys)
}

func reversed(in []string) []string {
	var out []string
	for i := len(in) - 1; i >= 0; i-- {
		out = append(out, in[i])
	}
	return out
}
