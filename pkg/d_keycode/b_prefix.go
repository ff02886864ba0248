package keycode

import (
	"math"

	"github.com/jgraettinger/cockroach-encoding/encoding"
)

// escapeTerminatorLen is the length of the terminator which closes an escaped
// byte string. Dropping it leaves a prefix of every escaped string which
// begins with the same bytes.
const escapeTerminatorLen = 2

// TxActivePrefix prefixes every TxActiveKey.
func TxActivePrefix() []byte { return []byte{TagTxActive} }

// TxWritePrefix prefixes every TxWriteKey of |version|.
func TxWritePrefix(version uint64) []byte {
	return encoding.EncodeUint64Ascending([]byte{TagTxWrite}, version)
}

// VersionPrefix prefixes every VersionKey of exactly |key|.
func VersionPrefix(key []byte) []byte {
	return encoding.EncodeBytesAscending([]byte{TagVersion}, key)
}

// VersionKeyPrefix prefixes every VersionKey whose user key begins with |prefix|.
func VersionKeyPrefix(prefix []byte) []byte {
	var b = VersionPrefix(prefix)
	return b[:len(b)-escapeTerminatorLen]
}

// VersionFamilyStart is the smallest key of the Version family, and
// VersionFamilyEnd is the smallest key beyond it.
func VersionFamilyStart() []byte { return []byte{TagVersion} }
func VersionFamilyEnd() []byte   { return []byte{TagVersion + 1} }

// UnversionedPrefix prefixes every UnversionedKey.
func UnversionedPrefix() []byte { return []byte{TagUnversioned} }

// MaxVersion sorts after every allocated version of a key.
const MaxVersion uint64 = math.MaxUint64
