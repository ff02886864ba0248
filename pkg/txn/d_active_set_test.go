package txn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveSetVersionsAndSettled(t *testing.T) {
	var set = NewActiveSet()
	assert.Equal(t, uint64(math.MaxUint64), set.Settled())

	set.Add(3)
	set.Add(1)
	set.Add(5)

	assert.Equal(t, []uint64{1, 5}, set.Versions(3))
	assert.Equal(t, []uint64{1, 3, 5}, set.Versions(0))
	assert.True(t, set.Contains(5))
	assert.False(t, set.Contains(4))
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, uint64(0), set.Settled())

	var early, late = make(chan struct{}), make(chan struct{})
	set.AddWaiter(2, early)
	set.AddWaiter(4, late)

	set.Remove(1)
	assert.Equal(t, uint64(2), set.Settled())
	assertClosed(t, early)
	assertOpen(t, late)

	set.Remove(5) // Doesn't change the oldest version.
	assertOpen(t, late)

	set.Remove(3)
	assert.Equal(t, uint64(math.MaxUint64), set.Settled())
	assertClosed(t, late)
	assert.Empty(t, set.waiters)
}

func TestActiveSetRemoveWaiter(t *testing.T) {
	var set = NewActiveSet()
	set.Add(1)

	var a, b = make(chan struct{}), make(chan struct{})
	set.AddWaiter(1, a)
	set.AddWaiter(1, b)
	set.RemoveWaiter(1, a)
	assert.Len(t, set.waiters[1], 1)
	set.RemoveWaiter(1, b)
	assert.Empty(t, set.waiters)

	set.Remove(1)
	assertOpen(t, a)
	assertOpen(t, b)
}

func assertClosed(t *testing.T, ch chan struct{}) {
	select {
	case <-ch:
	default:
		assert.Fail(t, "expected channel to be closed")
	}
}

func assertOpen(t *testing.T, ch chan struct{}) {
	select {
	case <-ch:
		assert.Fail(t, "expected channel to be open")
	default:
	}
}
