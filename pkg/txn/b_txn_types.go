package txn

import (
	"sort"
	"strconv"
	"strings"
)

// TransactionState is the portable state of a transaction: its version,
// whether it's read-only, and the versions excluded from its view. It may be
// serialized and later passed to Resume.
type TransactionState struct {
	Version  uint64   `json:"version"`
	ReadOnly bool     `json:"read_only"`
	Excluded []uint64 `json:"excluded,omitempty"` // Ascending.
}

// IsVisible returns whether a record written at |version| is visible to the
// transaction. Read-only transactions see versions before their own, and
// read-write transactions also see their own writes.
func (s TransactionState) IsVisible(version uint64) bool {
	if s.isExcluded(version) {
		return false
	} else if s.ReadOnly {
		return version < s.Version
	}
	return version <= s.Version
}

func (s TransactionState) isExcluded(version uint64) bool {
	var i = sort.Search(len(s.Excluded), func(i int) bool { return s.Excluded[i] >= version })
	return i != len(s.Excluded) && s.Excluded[i] == version
}

// conflictFloor is the lowest version whose writes could be invisible to the
// transaction: its oldest excluded version, or else the version after its own.
func (s TransactionState) conflictFloor() uint64 {
	if len(s.Excluded) != 0 {
		return s.Excluded[0]
	}
	return s.Version + 1
}

// String formats the state as "v3 rw excluded={1,2}".
func (s TransactionState) String() string {
	var mode = "rw"
	if s.ReadOnly {
		mode = "ro"
	}
	var excluded = make([]string, len(s.Excluded))
	for i, v := range s.Excluded {
		excluded[i] = strconv.FormatUint(v, 10)
	}
	return "v" + strconv.FormatUint(s.Version, 10) + " " + mode +
		" excluded={" + strings.Join(excluded, ",") + "}"
}

// Status of the engine.
type Status struct {
	Versions   uint64 `json:"versions"`    // Number of allocated versions.
	ActiveTxns uint64 `json:"active_txns"` // Number of active read-write transactions.
}

// Pair is a user key and its value.
type Pair struct {
	Key []byte
	Val []byte
}

type txnStatus int

const (
	statusActive txnStatus = iota
	statusCommitted
	statusRolledBack
)
