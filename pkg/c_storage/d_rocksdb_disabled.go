//go:build !rocksdb

package storage

import "github.com/pkg/errors"

// OpenRocks fails, as this binary was built without the "rocksdb" tag.
func OpenRocks(dir string) (Store, error) {
	return nil, errors.Errorf("opening rocksdb at %s: built without the rocksdb tag", dir)
}
