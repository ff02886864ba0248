//go:build rocksdb

package storage

import (
	"bytes"

	"github.com/jgraettinger/gorocksdb"
	"github.com/pkg/errors"
)

// RocksStore is a Store implementation backed by an embedded RocksDB.
type RocksStore struct {
	DB           *gorocksdb.DB
	Options      *gorocksdb.Options
	ReadOptions  *gorocksdb.ReadOptions
	WriteOptions *gorocksdb.WriteOptions
}

var _ Store = new(RocksStore)

// OpenRocks opens (creating if missing) the RocksDB at |dir|.
func OpenRocks(dir string) (Store, error) {
	var s = &RocksStore{
		Options:      gorocksdb.NewDefaultOptions(),
		ReadOptions:  gorocksdb.NewDefaultReadOptions(),
		WriteOptions: gorocksdb.NewDefaultWriteOptions(),
	}
	s.Options.SetCreateIfMissing(true)

	var err error
	if s.DB, err = gorocksdb.OpenDb(s.Options, dir); err != nil {
		return nil, errors.Wrapf(err, "opening rocksdb at %s", dir)
	}
	return s, nil
}

func (s *RocksStore) Get(key []byte) ([]byte, bool, error) {
	var slice, err = s.DB.Get(s.ReadOptions, key)
	if err != nil {
		return nil, false, errors.Wrap(err, "store get")
	}
	defer slice.Free()

	if !slice.Exists() {
		return nil, false, nil
	}
	return append([]byte(nil), slice.Data()...), true, nil
}

func (s *RocksStore) Set(key, value []byte) error {
	return errors.Wrap(s.DB.Put(s.WriteOptions, key, value), "store set")
}

func (s *RocksStore) Delete(key []byte) error {
	return errors.Wrap(s.DB.Delete(s.WriteOptions, key), "store delete")
}

func (s *RocksStore) Scan(rng Range, reverse bool, fn func(key, value []byte) bool) error {
	var it = s.DB.NewIterator(s.ReadOptions)
	defer it.Close()

	// Copies out of iterator-owned memory, which is invalidated on movement.
	var current = func() ([]byte, []byte) {
		var k, v = it.Key(), it.Value()
		defer k.Free()
		defer v.Free()
		return append([]byte(nil), k.Data()...), append([]byte(nil), v.Data()...)
	}

	if !reverse {
		if rng.Start.Kind == Unbounded {
			it.SeekToFirst()
		} else {
			it.Seek(rng.Start.Key)
		}
		for ; it.Valid(); it.Next() {
			var key, value = current()
			if rng.Start.Kind == Excluded && bytes.Equal(key, rng.Start.Key) {
				continue
			} else if !rng.BeforeEnd(key) || !fn(key, value) {
				break
			}
		}
	} else {
		if rng.End.Kind == Unbounded {
			it.SeekToLast()
		} else {
			it.SeekForPrev(rng.End.Key)
		}
		for ; it.Valid(); it.Prev() {
			var key, value = current()
			if rng.End.Kind == Excluded && bytes.Equal(key, rng.End.Key) {
				continue
			} else if !rng.AfterStart(key) || !fn(key, value) {
				break
			}
		}
	}
	return errors.Wrap(it.Err(), "store scan")
}

func (s *RocksStore) Close() error {
	s.DB.Close()
	s.Options.Destroy()
	s.ReadOptions.Destroy()
	s.WriteOptions.Destroy()
	return nil
}
