package txn

import (
	"bytes"

	storage "tiny_mvcc/pkg/c_storage"
	keycode "tiny_mvcc/pkg/d_keycode"
)

// ScanIterator iterates the visible keys of a range in key order, pulling
// them from the Store in bounded batches. Batches end only at a boundary
// between keys, so every version of a key is examined in one batch.
type ScanIterator struct {
	mvStore   *MvStore
	state     TransactionState
	rng       storage.Range // Remaining range of encoded VersionKeys.
	reverse   bool
	batchSize int

	buffer    []Pair
	exhausted bool
	pair      Pair
	err       error
}

// NewScanIterator returns a ScanIterator over user keys of |rng| visible to
// the transaction |state|.
func NewScanIterator(mvStore *MvStore, state TransactionState, rng storage.Range, reverse bool, batchSize int) *ScanIterator {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &ScanIterator{
		mvStore:   mvStore,
		state:     state,
		rng:       versionRange(rng),
		reverse:   reverse,
		batchSize: batchSize,
	}
}

// versionRange maps a Range of user keys to the Range of their VersionKeys.
func versionRange(rng storage.Range) storage.Range {
	var out storage.Range

	switch rng.Start.Kind {
	case storage.Included:
		out.Start = storage.Include(keycode.VersionKey{Key: rng.Start.Key, Version: 0}.Encode())
	case storage.Excluded:
		out.Start = storage.Exclude(keycode.VersionKey{Key: rng.Start.Key, Version: keycode.MaxVersion}.Encode())
	default:
		out.Start = storage.Include(keycode.VersionFamilyStart())
	}
	switch rng.End.Kind {
	case storage.Included:
		out.End = storage.Include(keycode.VersionKey{Key: rng.End.Key, Version: keycode.MaxVersion}.Encode())
	case storage.Excluded:
		out.End = storage.Exclude(keycode.VersionKey{Key: rng.End.Key, Version: 0}.Encode())
	default:
		out.End = storage.Exclude(keycode.VersionFamilyEnd())
	}
	return out
}

// prefixRange returns the Range of VersionKeys having user keys with |prefix|.
func prefixRange(prefix []byte) storage.Range {
	return storage.PrefixRange(keycode.VersionKeyPrefix(prefix))
}

// Next advances to the next visible key, returning false when the range is
// exhausted or an error occurred.
func (it *ScanIterator) Next() bool {
	for len(it.buffer) == 0 {
		if it.exhausted || it.err != nil {
			return false
		}
		it.err = it.fill()
	}
	it.pair, it.buffer = it.buffer[0], it.buffer[1:]
	return true
}

// Pair returns the current key and value. Both are owned by the caller.
func (it *ScanIterator) Pair() Pair { return it.pair }

// Err returns the error which stopped iteration, if any.
func (it *ScanIterator) Err() error { return it.err }

func (it *ScanIterator) fill() error {
	var (
		rows      int
		started   bool
		current   Pair // Key of the current group, and its chosen value.
		chosen    bool
		live      bool
		stopAt    []byte
		decodeErr error
	)
	var flush = func() {
		if chosen && live {
			it.buffer = append(it.buffer, current)
		}
	}

	var err = it.mvStore.store.Scan(it.rng, it.reverse, func(k, v []byte) bool {
		var vk keycode.VersionKey
		if vk, decodeErr = keycode.DecodeVersionKey(k); decodeErr != nil {
			return false
		}

		if !started || !bytes.Equal(vk.Key, current.Key) {
			if rows >= it.batchSize {
				stopAt = vk.Key
				return false
			}
			flush()
			started, chosen, current = true, false, Pair{Key: vk.Key}
		}
		rows++

		if !it.state.IsVisible(vk.Version) {
			return true
		} else if it.reverse && chosen {
			return true // Versions descend, and the newest visible one was chosen.
		}

		var value []byte
		if value, live, decodeErr = keycode.DecodeValue(v); decodeErr != nil {
			return false
		}
		current.Val, chosen = append([]byte{}, value...), true
		return true
	})

	if err == nil {
		err = decodeErr
	}
	if err != nil {
		logCorruption(err, nil)
		return err
	}
	flush()

	if stopAt == nil {
		it.exhausted = true
	} else if it.reverse {
		it.rng.End = storage.Include(keycode.VersionKey{Key: stopAt, Version: keycode.MaxVersion}.Encode())
	} else {
		it.rng.Start = storage.Include(keycode.VersionKey{Key: stopAt, Version: 0}.Encode())
	}
	return nil
}
