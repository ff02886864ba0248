package keycode

import (
	"github.com/jgraettinger/cockroach-encoding/encoding"
	"github.com/pkg/errors"
	"tiny_mvcc/pkg/a_misc/errmsg"
)

// Leading bytes of an encoded versioned value.
const (
	valueTombstone byte = 0x00
	valuePresent   byte = 0x01
)

// EncodeValue encodes a live versioned |value|.
func EncodeValue(value []byte) []byte {
	var b = make([]byte, 1, 1+len(value))
	b[0] = valuePresent
	return append(b, value...)
}

// EncodeTombstone encodes the deletion of a versioned key.
func EncodeTombstone() []byte { return []byte{valueTombstone} }

// DecodeValue decodes a versioned value, returning the value and whether it's
// live. A tombstone decodes as (nil, false). The returned value aliases |b|.
func DecodeValue(b []byte) ([]byte, bool, error) {
	if len(b) == 0 {
		return nil, false, errors.WithMessage(errmsg.CorruptRecord, "decoding versioned value: empty")
	}
	switch b[0] {
	case valueTombstone:
		if len(b) != 1 {
			return nil, false, errors.WithMessagef(errmsg.CorruptRecord,
				"decoding versioned value %x: tombstone has a body", b)
		}
		return nil, false, nil
	case valuePresent:
		return b[1:], true, nil
	default:
		return nil, false, errors.WithMessagef(errmsg.CorruptRecord,
			"decoding versioned value %x: unknown marker 0x%02x", b, b[0])
	}
}

// EncodeVersion encodes a single version, as held by NextVersionKey.
func EncodeVersion(v uint64) []byte { return encoding.EncodeUint64Ascending(nil, v) }

// DecodeVersion decodes a single version.
func DecodeVersion(b []byte) (uint64, error) {
	var rest, v, err = encoding.DecodeUint64Ascending(b)
	if err == nil && len(rest) != 0 {
		err = errors.Errorf("%d trailing bytes", len(rest))
	}
	if err != nil {
		return 0, errors.WithMessagef(errmsg.CorruptRecord, "decoding version %x: %s", b, err)
	}
	return v, nil
}

// EncodeVersionSet encodes a set of versions as a count followed by each
// version, as held by TxActiveSnapshotKey.
func EncodeVersionSet(versions []uint64) []byte {
	var b = make([]byte, 0, 8*(len(versions)+1))
	b = encoding.EncodeUint64Ascending(b, uint64(len(versions)))
	for _, v := range versions {
		b = encoding.EncodeUint64Ascending(b, v)
	}
	return b
}

// DecodeVersionSet decodes a set of versions.
func DecodeVersionSet(b []byte) ([]uint64, error) {
	var fail = func(err error) ([]uint64, error) {
		return nil, errors.WithMessagef(errmsg.CorruptRecord, "decoding version set %x: %s", b, err)
	}
	var rest, n, err = encoding.DecodeUint64Ascending(b)
	if err != nil {
		return fail(err)
	} else if len(rest)%8 != 0 || uint64(len(rest)/8) != n {
		return fail(errors.Errorf("expected %d versions, have %d bytes", n, len(rest)))
	}

	var out = make([]uint64, n)
	for i := range out {
		if rest, out[i], err = encoding.DecodeUint64Ascending(rest); err != nil {
			return fail(err)
		}
	}
	return out, nil
}
