package keycode

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatValue formats the |value| of a record having |key| for display.
func FormatValue(key Key, value []byte) string {
	switch key.(type) {
	case NextVersionKey:
		if v, err := DecodeVersion(value); err == nil {
			return strconv.FormatUint(v, 10)
		}
	case TxActiveSnapshotKey:
		if versions, err := DecodeVersionSet(value); err == nil {
			var parts = make([]string, len(versions))
			for i, v := range versions {
				parts[i] = strconv.FormatUint(v, 10)
			}
			return "{" + strings.Join(parts, ",") + "}"
		}
	case VersionKey:
		if v, live, err := DecodeValue(value); err == nil && live {
			return fmt.Sprintf("%q", v)
		} else if err == nil {
			return "None"
		}
	default:
		return fmt.Sprintf("%q", value)
	}
	return fmt.Sprintf("corrupt(%x)", value)
}
