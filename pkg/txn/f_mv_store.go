package txn

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"tiny_mvcc/pkg/a_misc/errmsg"
	storage "tiny_mvcc/pkg/c_storage"
	keycode "tiny_mvcc/pkg/d_keycode"
)

// MvStore maps (key, version) pairs to values or tombstones, on top of an
// ordered Store which is unaware of versions. It also keeps the per-version
// index of written keys, and unversioned keys.
type MvStore struct {
	store storage.Store
}

func NewMVStore(store storage.Store) *MvStore {
	return &MvStore{store: store}
}

// Get returns the value of |key| as seen by the transaction |state|: the
// newest version of |key| visible to it. Tombstones and missing keys are
// both reported as absent.
func (mvStore *MvStore) Get(key []byte, state TransactionState) ([]byte, bool, error) {
	return mvStore.seekBackward(key, state.Version, state.IsVisible)
}

// GetAsOf returns the value of |key| at |version|: the newest version of
// |key| at or below |version|, regardless of transaction visibility.
func (mvStore *MvStore) GetAsOf(key []byte, version uint64) ([]byte, bool, error) {
	return mvStore.seekBackward(key, version, func(uint64) bool { return true })
}

// seekBackward walks the versions of |key| from |version| down to zero, and
// returns the first accepted by |visible|.
func (mvStore *MvStore) seekBackward(key []byte, version uint64, visible func(uint64) bool) ([]byte, bool, error) {
	var rng = storage.Range{
		Start: storage.Include(keycode.VersionKey{Key: key, Version: 0}.Encode()),
		End:   storage.Include(keycode.VersionKey{Key: key, Version: version}.Encode()),
	}
	var value []byte
	var found bool
	var decodeErr error

	var err = mvStore.store.Scan(rng, true, func(k, v []byte) bool {
		var vk keycode.VersionKey
		if vk, decodeErr = keycode.DecodeVersionKey(k); decodeErr != nil {
			return false
		} else if !visible(vk.Version) {
			return true
		}
		var live bool
		if value, live, decodeErr = keycode.DecodeValue(v); decodeErr == nil && live {
			value, found = append([]byte{}, value...), true
		}
		return false
	})

	if err == nil {
		err = decodeErr
	}
	if err != nil {
		logCorruption(err, key)
		return nil, false, err
	}
	return value, found, nil
}

// Latest returns the newest version of |key| at or above |floor|, if any.
func (mvStore *MvStore) Latest(key []byte, floor uint64) (uint64, bool, error) {
	var rng = storage.Range{
		Start: storage.Include(keycode.VersionKey{Key: key, Version: floor}.Encode()),
		End:   storage.Include(keycode.VersionKey{Key: key, Version: keycode.MaxVersion}.Encode()),
	}
	var latest uint64
	var found bool
	var decodeErr error

	var err = mvStore.store.Scan(rng, true, func(k, _ []byte) bool {
		var vk keycode.VersionKey
		if vk, decodeErr = keycode.DecodeVersionKey(k); decodeErr == nil {
			latest, found = vk.Version, true
		}
		return false
	})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		logCorruption(err, key)
		return 0, false, err
	}
	return latest, found, nil
}

// Put writes |value| as the value of |key| at |version|, or a tombstone if
// not |live|, and records the write in the undo index of |version|.
func (mvStore *MvStore) Put(version uint64, key, value []byte, live bool) error {
	var encoded []byte
	if live {
		encoded = keycode.EncodeValue(value)
	} else {
		encoded = keycode.EncodeTombstone()
	}

	if err := mvStore.store.Set(keycode.TxWriteKey{Version: version, Key: key}.Encode(), nil); err != nil {
		return errors.WithMessage(err, "writing undo marker")
	}
	if err := mvStore.store.Set(keycode.VersionKey{Key: key, Version: version}.Encode(), encoded); err != nil {
		return errors.WithMessage(err, "writing version")
	}
	return nil
}

// Writes returns the ascending keys written at |version|.
func (mvStore *MvStore) Writes(version uint64) ([][]byte, error) {
	var keys [][]byte
	var decodeErr error

	var err = mvStore.store.Scan(storage.PrefixRange(keycode.TxWritePrefix(version)), false,
		func(k, _ []byte) bool {
			var decoded keycode.Key
			if decoded, decodeErr = keycode.Decode(k); decodeErr != nil {
				return false
			} else if marker, ok := decoded.(keycode.TxWriteKey); !ok || marker.Version != version {
				decodeErr = errors.WithMessagef(errmsg.CorruptRecord,
					"unexpected %s within writes of version %d", decoded, version)
				return false
			} else {
				keys = append(keys, marker.Key)
				return true
			}
		})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		logCorruption(err, nil)
		return nil, err
	}
	return keys, nil
}

// Undo removes every write of |version| along with its undo markers,
// returning the number of undone writes.
func (mvStore *MvStore) Undo(version uint64) (int, error) {
	var keys, err = mvStore.Writes(version)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err = mvStore.store.Delete(keycode.VersionKey{Key: key, Version: version}.Encode()); err != nil {
			return 0, errors.WithMessage(err, "removing version")
		}
		if err = mvStore.store.Delete(keycode.TxWriteKey{Version: version, Key: key}.Encode()); err != nil {
			return 0, errors.WithMessage(err, "removing undo marker")
		}
	}
	return len(keys), nil
}

func (mvStore *MvStore) GetUnversioned(key []byte) ([]byte, bool, error) {
	return mvStore.store.Get(keycode.UnversionedKey{Key: key}.Encode())
}

func (mvStore *MvStore) SetUnversioned(key, value []byte) error {
	return mvStore.store.Set(keycode.UnversionedKey{Key: key}.Encode(), value)
}

func logCorruption(err error, key []byte) {
	if !errors.Is(err, errmsg.CorruptRecord) {
		return
	}
	var entry = log.WithField("err", err)
	if key != nil {
		entry = entry.WithField("key", key)
	}
	entry.Error("corrupt record")
}
