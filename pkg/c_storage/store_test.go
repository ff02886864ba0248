package storage

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestMemStoreContract(t *testing.T) {
	runStoreContract(t, NewMemStore())
}

func TestSQLiteStoreContract(t *testing.T) {
	var store, err = OpenSQL(SQLite, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	runStoreContract(t, store)
}

func runStoreContract(t *testing.T, store Store) {
	for _, k := range []string{"a", "b", "ba", "bb", "c", "\xff"} {
		require.NoError(t, store.Set([]byte(k), []byte("v-"+k)))
	}

	t.Run("get", func(t *testing.T) {
		var value, ok, err = store.Get([]byte("ba"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v-ba", string(value))

		_, ok, err = store.Get([]byte("zz"))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("empty value", func(t *testing.T) {
		require.NoError(t, store.Set([]byte("e"), nil))
		var value, ok, err = store.Get([]byte("e"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Empty(t, value)
		require.NoError(t, store.Delete([]byte("e")))
	})

	t.Run("overwrite and delete", func(t *testing.T) {
		require.NoError(t, store.Set([]byte("c"), []byte("other")))
		var value, _, err = store.Get([]byte("c"))
		require.NoError(t, err)
		require.Equal(t, "other", string(value))

		require.NoError(t, store.Set([]byte("c"), []byte("v-c")))
		require.NoError(t, store.Delete([]byte("missing")))
	})

	var cases = []struct {
		rng     Range
		reverse bool
		expect  []string
	}{
		{All, false, []string{"a", "b", "ba", "bb", "c", "\xff"}},
		{All, true, []string{"\xff", "c", "bb", "ba", "b", "a"}},
		{Range{Start: Include([]byte("b")), End: Exclude([]byte("c"))}, false, []string{"b", "ba", "bb"}},
		{Range{Start: Exclude([]byte("b")), End: Include([]byte("c"))}, false, []string{"ba", "bb", "c"}},
		{Range{Start: Exclude([]byte("b")), End: Include([]byte("c"))}, true, []string{"c", "bb", "ba"}},
		{Range{Start: Include([]byte("b")), End: Exclude([]byte("bb"))}, true, []string{"ba", "b"}},
		{Range{End: Exclude([]byte("b"))}, true, []string{"a"}},
		{Range{Start: Include([]byte("bz"))}, false, []string{"c", "\xff"}},
		{PrefixRange([]byte("b")), false, []string{"b", "ba", "bb"}},
		{PrefixRange([]byte("\xff")), true, []string{"\xff"}},
		{Range{Start: Include([]byte("x")), End: Exclude([]byte("y"))}, false, nil},
	}
	for _, tc := range cases {
		var keys []string
		require.NoError(t, store.Scan(tc.rng, tc.reverse, func(key, value []byte) bool {
			require.Equal(t, "v-"+string(key), string(value))
			keys = append(keys, string(key))
			return true
		}))
		require.Equal(t, tc.expect, keys)
	}

	// Returning false stops the scan.
	var keys []string
	require.NoError(t, store.Scan(All, false, func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return len(keys) != 2
	}))
	require.Equal(t, []string{"a", "b"}, keys)
}

func TestPrefixEnd(t *testing.T) {
	require.Equal(t, []byte("b"), PrefixEnd([]byte("a")))
	require.Equal(t, []byte{0x01, 0x03}, PrefixEnd([]byte{0x01, 0x02, 0xff}))
	require.Nil(t, PrefixEnd([]byte{0xff, 0xff}))
	require.Nil(t, PrefixEnd(nil))

	require.Equal(t, Range{Start: Include([]byte{0xff})}, PrefixRange([]byte{0xff}))
}

func TestRangeContains(t *testing.T) {
	var rng = Range{Start: Exclude([]byte("b")), End: Include([]byte("d"))}

	require.False(t, rng.Contains([]byte("a")))
	require.False(t, rng.Contains([]byte("b")))
	require.True(t, rng.Contains([]byte("c")))
	require.True(t, rng.Contains([]byte("d")))
	require.False(t, rng.Contains([]byte("da")))
	require.True(t, All.Contains(nil))
}

func TestOpenBackends(t *testing.T) {
	var store, err = Open(Config{})
	require.NoError(t, err)
	require.IsType(t, new(MemStore), store.(*Observed).Store)

	store, err = Open(Config{Backend: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.IsType(t, new(SQLStore), store.(*Observed).Store)
	require.NoError(t, store.Close())

	_, err = Open(Config{Backend: "other"})
	require.EqualError(t, err, `unknown store backend "other"`)
}

func TestObservedCountsOperations(t *testing.T) {
	var store = Observe("observed-test", NewMemStore())

	require.NoError(t, store.Set([]byte("ab"), []byte("cde")))
	require.NoError(t, store.Set([]byte("f"), []byte("g")))
	_, _, _ = store.Get([]byte("ab"))
	require.NoError(t, store.Delete([]byte("zz")))
	require.NoError(t, store.Scan(All, false, func(_, _ []byte) bool { return true }))

	require.Equal(t, 2.0, counterValue(t, store.ops.WithLabelValues("set")))
	require.Equal(t, 1.0, counterValue(t, store.ops.WithLabelValues("get")))
	require.Equal(t, 1.0, counterValue(t, store.ops.WithLabelValues("delete")))
	require.Equal(t, 1.0, counterValue(t, store.ops.WithLabelValues("scan")))
	require.Equal(t, 7.0, counterValue(t, store.written))
	require.Equal(t, 2.0, counterValue(t, store.rows))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
