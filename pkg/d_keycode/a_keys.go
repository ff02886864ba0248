// Package keycode encodes the record families of the MVCC engine into a
// single ordered keyspace. Every key begins with a tag byte selecting its
// family, and the remainder is encoded so that bytewise ordering of encoded
// keys matches the logical ordering of the records: user keys use the
// escaped "bytes ascending" encoding, and versions are fixed-width
// big-endian.
package keycode

import (
	"fmt"

	"github.com/jgraettinger/cockroach-encoding/encoding"
	"github.com/pkg/errors"
	"tiny_mvcc/pkg/a_misc/errmsg"
)

// Tag bytes of the record families, in keyspace order.
const (
	TagNextVersion      byte = 0x01
	TagTxActive         byte = 0x02
	TagTxActiveSnapshot byte = 0x03
	TagTxWrite          byte = 0x04
	TagVersion          byte = 0x05
	TagUnversioned      byte = 0x06
)

// Key is a decoded record key. The set of implementations is closed.
type Key interface {
	// Encode the Key into its ordered byte representation.
	Encode() []byte
	fmt.Stringer

	isKey()
}

// NextVersionKey holds the next version to be allocated.
type NextVersionKey struct{}

// TxActiveKey marks Version as an active read-write transaction.
type TxActiveKey struct{ Version uint64 }

// TxActiveSnapshotKey holds the versions that were active when Version began.
type TxActiveSnapshotKey struct{ Version uint64 }

// TxWriteKey records that Version wrote Key, so it can be undone on rollback.
type TxWriteKey struct {
	Version uint64
	Key     []byte
}

// VersionKey holds the value (or tombstone) Key was given at Version.
type VersionKey struct {
	Key     []byte
	Version uint64
}

// UnversionedKey holds a non-transactional value of Key.
type UnversionedKey struct{ Key []byte }

func (NextVersionKey) isKey()      {}
func (TxActiveKey) isKey()         {}
func (TxActiveSnapshotKey) isKey() {}
func (TxWriteKey) isKey()          {}
func (VersionKey) isKey()          {}
func (UnversionedKey) isKey()      {}

func (NextVersionKey) Encode() []byte { return []byte{TagNextVersion} }

func (k TxActiveKey) Encode() []byte {
	return encoding.EncodeUint64Ascending([]byte{TagTxActive}, k.Version)
}

func (k TxActiveSnapshotKey) Encode() []byte {
	return encoding.EncodeUint64Ascending([]byte{TagTxActiveSnapshot}, k.Version)
}

func (k TxWriteKey) Encode() []byte {
	var b = make([]byte, 1, 1+8+len(k.Key)+3)
	b[0] = TagTxWrite
	b = encoding.EncodeUint64Ascending(b, k.Version)
	return encoding.EncodeBytesAscending(b, k.Key)
}

func (k VersionKey) Encode() []byte {
	var b = make([]byte, 1, 1+len(k.Key)+3+8)
	b[0] = TagVersion
	b = encoding.EncodeBytesAscending(b, k.Key)
	return encoding.EncodeUint64Ascending(b, k.Version)
}

func (k UnversionedKey) Encode() []byte {
	return encoding.EncodeBytesAscending([]byte{TagUnversioned}, k.Key)
}

func (NextVersionKey) String() string        { return "NextVersion" }
func (k TxActiveKey) String() string         { return fmt.Sprintf("TxActive(%d)", k.Version) }
func (k TxActiveSnapshotKey) String() string { return fmt.Sprintf("TxActiveSnapshot(%d)", k.Version) }
func (k TxWriteKey) String() string          { return fmt.Sprintf("TxWrite(%d, %q)", k.Version, k.Key) }
func (k VersionKey) String() string          { return fmt.Sprintf("Version(%q, %d)", k.Key, k.Version) }
func (k UnversionedKey) String() string      { return fmt.Sprintf("Unversioned(%q)", k.Key) }

// Decode an encoded Key. Unknown tags, truncated versions, bad escapes and
// trailing bytes are reported as errmsg.CorruptRecord.
func Decode(b []byte) (Key, error) {
	if len(b) == 0 {
		return nil, corrupt(b, "empty key")
	}
	var tag, rest = b[0], b[1:]
	var out Key
	var err error

	switch tag {
	case TagNextVersion:
		out = NextVersionKey{}
	case TagTxActive:
		var k TxActiveKey
		rest, k.Version, err = encoding.DecodeUint64Ascending(rest)
		out = k
	case TagTxActiveSnapshot:
		var k TxActiveSnapshotKey
		rest, k.Version, err = encoding.DecodeUint64Ascending(rest)
		out = k
	case TagTxWrite:
		var k TxWriteKey
		if rest, k.Version, err = encoding.DecodeUint64Ascending(rest); err == nil {
			rest, k.Key, err = encoding.DecodeBytesAscending(rest, nil)
		}
		out = k
	case TagVersion:
		var k VersionKey
		if rest, k.Key, err = encoding.DecodeBytesAscending(rest, nil); err == nil {
			rest, k.Version, err = encoding.DecodeUint64Ascending(rest)
		}
		out = k
	case TagUnversioned:
		var k UnversionedKey
		rest, k.Key, err = encoding.DecodeBytesAscending(rest, nil)
		out = k
	default:
		return nil, corrupt(b, "unknown tag 0x%02x", tag)
	}

	if err != nil {
		return nil, corrupt(b, "%s", err)
	} else if len(rest) != 0 {
		return nil, corrupt(b, "%d trailing bytes", len(rest))
	}

	// Decoded user keys may alias |b|. Copy them so they outlive it.
	switch k := out.(type) {
	case TxWriteKey:
		k.Key = append([]byte(nil), k.Key...)
		out = k
	case VersionKey:
		k.Key = append([]byte(nil), k.Key...)
		out = k
	case UnversionedKey:
		k.Key = append([]byte(nil), k.Key...)
		out = k
	}
	return out, nil
}

// DecodeVersionKey decodes |b|, which must be a VersionKey.
func DecodeVersionKey(b []byte) (VersionKey, error) {
	var key, err = Decode(b)
	if err != nil {
		return VersionKey{}, err
	} else if vk, ok := key.(VersionKey); !ok {
		return VersionKey{}, corrupt(b, "expected a Version key, not %s", key)
	} else {
		return vk, nil
	}
}

func corrupt(b []byte, format string, args ...interface{}) error {
	return errors.WithMessagef(errmsg.CorruptRecord,
		"decoding key %x: %s", b, fmt.Sprintf(format, args...))
}
