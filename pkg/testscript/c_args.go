package testscript

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	storage "tiny_mvcc/pkg/c_storage"
	"tiny_mvcc/pkg/txn"
)

// args tracks which arguments of a Command have been consumed.
type args struct {
	items []Arg
	used  []bool
}

func newArgs(items []Arg) *args {
	return &args{items: items, used: make([]bool, len(items))}
}

// positional consumes the next positional argument, or returns "".
func (a *args) positional() string {
	for i, arg := range a.items {
		if !a.used[i] && arg.Key == "" {
			a.used[i] = true
			return arg.Value
		}
	}
	return ""
}

// rest consumes all remaining positional arguments.
func (a *args) rest() []Arg {
	var out []Arg
	for i, arg := range a.items {
		if !a.used[i] && arg.Key == "" {
			a.used[i] = true
			out = append(out, arg)
		}
	}
	return out
}

// keyValues consumes all remaining key=value arguments, decoding both.
func (a *args) keyValues() ([]txn.Pair, error) {
	var out []txn.Pair
	for i, arg := range a.items {
		if a.used[i] || arg.Key == "" {
			continue
		}
		a.used[i] = true

		var key, err = decodeBytes(arg.Key)
		if err != nil {
			return nil, err
		}
		value, err := decodeBytes(arg.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, txn.Pair{Key: key, Val: value})
	}
	return out, nil
}

// lookup consumes the key=value argument having |key|.
func (a *args) lookup(key string) (string, bool) {
	for i, arg := range a.items {
		if !a.used[i] && arg.Key == key {
			a.used[i] = true
			return arg.Value, true
		}
	}
	return "", false
}

func (a *args) uint(key string) (uint64, bool, error) {
	var value, ok = a.lookup(key)
	if !ok {
		return 0, false, nil
	}
	var v, err = strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "parsing %s", key)
	}
	return v, true, nil
}

// flag consumes a positional argument which equals |name|.
func (a *args) flag(name string) bool {
	for i, arg := range a.items {
		if !a.used[i] && arg.Key == "" && arg.Value == name {
			a.used[i] = true
			return true
		}
	}
	return false
}

// flagValue consumes a boolean key=value argument, which defaults to false.
func (a *args) flagValue(key string) (bool, error) {
	var value, ok = a.lookup(key)
	if !ok {
		return false, nil
	}
	var b, err = strconv.ParseBool(value)
	if err != nil {
		return false, errors.Wrapf(err, "parsing %s", key)
	}
	return b, nil
}

// done fails if any argument wasn't consumed.
func (a *args) done() error {
	for i, arg := range a.items {
		if a.used[i] {
			continue
		} else if arg.Key != "" {
			return errors.Errorf("unexpected argument %s=%s", arg.Key, arg.Value)
		} else {
			return errors.Errorf("unexpected argument %s", arg.Value)
		}
	}
	return nil
}

// parseRange parses a range of user keys: "a..b", "a..=b", "a..", "..b",
// "..=b" or "..". An empty string is the full range.
func parseRange(s string) (storage.Range, error) {
	var rng storage.Range
	if s == "" {
		return rng, nil
	}
	var i = strings.Index(s, "..")
	if i < 0 {
		return rng, errors.Errorf("invalid range %q", s)
	}
	var start, end = s[:i], s[i+2:]
	var inclusive = strings.HasPrefix(end, "=")
	end = strings.TrimPrefix(end, "=")

	if start != "" {
		var key, err = decodeBytes(start)
		if err != nil {
			return rng, err
		}
		rng.Start = storage.Include(key)
	}
	if end != "" {
		var key, err = decodeBytes(end)
		if err != nil {
			return rng, err
		}
		if inclusive {
			rng.End = storage.Include(key)
		} else {
			rng.End = storage.Exclude(key)
		}
	} else if inclusive {
		return rng, errors.Errorf("invalid range %q", s)
	}
	return rng, nil
}
