package storage

import "bytes"

// Store is an ordered byte-keyed store. It knows nothing about transactions
// or versions: it durably (or not, depending on the backend) maps keys to
// values and supports ordered range scans.
type Store interface {
	// Get returns the value of |key|, and whether it exists.
	Get(key []byte) ([]byte, bool, error)
	// Set puts |value| under |key|, replacing any previous value.
	Set(key, value []byte) error
	// Delete removes |key|. Deleting a missing key is not an error.
	Delete(key []byte) error
	// Scan invokes |fn| for each pair within |rng|, in ascending key order or
	// descending when |reverse|. Scan stops early if |fn| returns false.
	// |fn| must not call back into the Store, and must not modify the
	// slices it's passed.
	Scan(rng Range, reverse bool, fn func(key, value []byte) bool) error
	// Close releases resources held by the Store.
	Close() error
}

type BoundKind int

const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound is one end of a Range.
type Bound struct {
	Kind BoundKind
	Key  []byte
}

func Include(key []byte) Bound { return Bound{Kind: Included, Key: key} }
func Exclude(key []byte) Bound { return Bound{Kind: Excluded, Key: key} }

// Range of keys between Start and End.
type Range struct {
	Start, End Bound
}

// All is the Range of every key.
var All = Range{}

// PrefixRange returns the Range of all keys having |prefix|.
func PrefixRange(prefix []byte) Range {
	var rng = Range{Start: Include(prefix)}
	if end := PrefixEnd(prefix); end != nil {
		rng.End = Exclude(end)
	}
	return rng
}

// PrefixEnd returns the smallest key greater than every key having |prefix|,
// or nil if no such key exists (|prefix| is empty or all 0xff).
func PrefixEnd(prefix []byte) []byte {
	var end = append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// AfterStart returns whether |key| lies at or beyond the Range's Start.
func (r Range) AfterStart(key []byte) bool {
	switch r.Start.Kind {
	case Included:
		return bytes.Compare(key, r.Start.Key) >= 0
	case Excluded:
		return bytes.Compare(key, r.Start.Key) > 0
	default:
		return true
	}
}

// BeforeEnd returns whether |key| lies at or before the Range's End.
func (r Range) BeforeEnd(key []byte) bool {
	switch r.End.Kind {
	case Included:
		return bytes.Compare(key, r.End.Key) <= 0
	case Excluded:
		return bytes.Compare(key, r.End.Key) < 0
	default:
		return true
	}
}

// Contains returns whether |key| lies within the Range.
func (r Range) Contains(key []byte) bool {
	return r.AfterStart(key) && r.BeforeEnd(key)
}
