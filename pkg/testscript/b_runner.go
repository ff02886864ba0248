package testscript

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	storage "tiny_mvcc/pkg/c_storage"
	keycode "tiny_mvcc/pkg/d_keycode"
	"tiny_mvcc/pkg/db"
	"tiny_mvcc/pkg/txn"
)

// Runner runs commands against a Db, tracking named transactions.
type Runner struct {
	db   *db.Db
	txns map[string]*txn.Txn
}

func NewRunner(db *db.Db) *Runner {
	return &Runner{db: db, txns: make(map[string]*txn.Txn)}
}

// RunBlock runs the commands of the Block and returns their combined output.
func (r *Runner) RunBlock(block Block) string {
	var out strings.Builder
	for _, cmd := range block.Commands {
		out.WriteString(r.Run(cmd))
	}
	return out.String()
}

// Run the Command, returning its output. A failed command outputs its
// error as "Error: <message>", using the message of the root cause.
func (r *Runner) Run(cmd Command) string {
	var out strings.Builder
	if err := r.run(cmd, &out); err != nil {
		fmt.Fprintf(&out, "Error: %s\n", errors.Cause(err))
	}
	return out.String()
}

func (r *Runner) run(cmd Command, out *strings.Builder) error {
	var args = newArgs(cmd.Args)

	switch cmd.Name {
	case "begin":
		var readOnly = args.flag("readonly")
		var asOf, hasAsOf, err = args.uint("as_of")
		if err != nil {
			return err
		} else if err = args.done(); err != nil {
			return err
		} else if cmd.Prefix == "" {
			return errors.New("begin requires a transaction name")
		} else if _, ok := r.txns[cmd.Prefix]; ok {
			return errors.Errorf("transaction %s already exists", cmd.Prefix)
		}

		var t *txn.Txn
		switch {
		case hasAsOf && !readOnly:
			return errors.New("as_of requires a readonly transaction")
		case hasAsOf:
			t, err = r.db.BeginAsOf(asOf)
		case readOnly:
			t, err = r.db.BeginReadOnly()
		default:
			t, err = r.db.Begin()
		}
		if err != nil {
			return err
		}
		r.txns[cmd.Prefix] = t

	case "commit", "rollback":
		var t, err = r.txn(cmd)
		if err != nil {
			return err
		} else if err = args.done(); err != nil {
			return err
		}
		if cmd.Name == "commit" {
			err = t.Commit()
		} else {
			err = t.Rollback()
		}
		if err == nil {
			delete(r.txns, cmd.Prefix)
		}
		return err

	case "state":
		var t, err = r.txn(cmd)
		if err != nil {
			return err
		} else if err = args.done(); err != nil {
			return err
		}
		fmt.Fprintln(out, t.State())

	case "state_json":
		var t, err = r.txn(cmd)
		if err != nil {
			return err
		} else if err = args.done(); err != nil {
			return err
		}
		b, err := json.Marshal(t.State())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))

	case "resume":
		// resume NAME JSON-STATE (no spaces) re-attaches a transaction.
		var name, state = args.positional(), args.positional()
		if err := args.done(); err != nil {
			return err
		} else if cmd.Prefix != "" || name == "" {
			return errors.New("usage: resume NAME STATE")
		}
		var decoded txn.TransactionState
		if err := json.Unmarshal([]byte(state), &decoded); err != nil {
			return errors.Wrap(err, "decoding state")
		}
		var t, err = r.db.Resume(decoded)
		if err != nil {
			return err
		}
		r.txns[name] = t

	case "get":
		return r.get(cmd, args, out)
	case "set":
		return r.write(cmd, args, true)
	case "remove":
		return r.write(cmd, args, false)

	case "scan", "scan_prefix":
		var t, err = r.txn(cmd)
		if err != nil {
			return err
		}
		var target = args.positional()
		reverse, err := args.flagValue("reverse")
		if err != nil {
			return err
		} else if err = args.done(); err != nil {
			return err
		}

		var pairs []txn.Pair
		if cmd.Name == "scan" {
			var rng storage.Range
			if rng, err = parseRange(target); err != nil {
				return err
			}
			pairs, err = t.Scan(rng, reverse)
		} else {
			var prefix []byte
			if prefix, err = decodeBytes(target); err != nil {
				return err
			}
			pairs, err = t.ScanPrefix(prefix, reverse)
		}
		if err != nil {
			return err
		}
		for _, p := range pairs {
			fmt.Fprintf(out, "%q → %q\n", p.Key, p.Val)
		}

	case "import":
		if err := noTxn(cmd); err != nil {
			return err
		}
		var version uint64
		if len(cmd.Args) != 0 && cmd.Args[0].Key == "" {
			var err error
			if version, err = strconv.ParseUint(args.positional(), 10, 64); err != nil {
				return errors.Wrap(err, "parsing version")
			}
		}
		var kvs, err = args.keyValues()
		if err != nil {
			return err
		} else if err = args.done(); err != nil {
			return err
		}
		var apply = func(t *txn.Txn) error {
			for _, kv := range kvs {
				var err error
				if len(kv.Val) == 0 {
					err = t.Remove(kv.Key)
				} else {
					err = t.Set(kv.Key, kv.Val)
				}
				if err != nil {
					return err
				}
			}
			return nil
		}
		if version != 0 {
			return r.db.Import(version, apply)
		}
		t, err := r.db.Begin()
		if err != nil {
			return err
		} else if err = apply(t); err != nil {
			_ = t.Rollback()
			return err
		}
		return t.Commit()

	case "get_unversioned":
		if err := noTxn(cmd); err != nil {
			return err
		}
		for _, arg := range args.rest() {
			var key, err = decodeBytes(arg.Value)
			if err != nil {
				return err
			}
			value, ok, err := r.db.GetUnversioned(key)
			if err != nil {
				return err
			}
			printMaybe(out, key, value, ok)
		}

	case "set_unversioned":
		if err := noTxn(cmd); err != nil {
			return err
		}
		var kvs, err = args.keyValues()
		if err != nil {
			return err
		} else if err = args.done(); err != nil {
			return err
		}
		for _, kv := range kvs {
			if err = r.db.SetUnversioned(kv.Key, kv.Val); err != nil {
				return err
			}
		}

	case "writes":
		if err := noTxn(cmd); err != nil {
			return err
		}
		var version, err = strconv.ParseUint(args.positional(), 10, 64)
		if err != nil {
			return errors.Wrap(err, "parsing version")
		} else if err = args.done(); err != nil {
			return err
		}
		keys, err := r.db.Writes(version)
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintf(out, "%q\n", key)
		}

	case "dump":
		if err := noTxn(cmd); err != nil {
			return err
		} else if err = args.done(); err != nil {
			return err
		}
		var records, err = r.db.Dump()
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Fprintf(out, "%s → %s\n", rec.Key, keycode.FormatValue(rec.Key, rec.Value))
		}

	case "status":
		if err := noTxn(cmd); err != nil {
			return err
		} else if err = args.done(); err != nil {
			return err
		}
		var status, err = r.db.Status()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "versions=%d active_txns=%d\n", status.Versions, status.ActiveTxns)

	default:
		return errors.Errorf("unknown command %q", cmd.Name)
	}
	return nil
}

// get KEY... within a transaction, or get KEY... version=N outside of one.
func (r *Runner) get(cmd Command, args *args, out *strings.Builder) error {
	var version, asOf, err = args.uint("version")
	if err != nil {
		return err
	}
	var t *txn.Txn
	if asOf {
		if err = noTxn(cmd); err != nil {
			return err
		}
	} else if t, err = r.txn(cmd); err != nil {
		return err
	}

	for _, arg := range args.rest() {
		var key, err = decodeBytes(arg.Value)
		if err != nil {
			return err
		}
		var value []byte
		var ok bool
		if asOf {
			value, ok, err = r.db.GetAsOf(key, version)
		} else {
			value, ok, err = t.Get(key)
		}
		if err != nil {
			return err
		}
		printMaybe(out, key, value, ok)
	}
	return nil
}

// set / remove within a transaction, or at version=N outside of one.
func (r *Runner) write(cmd Command, args *args, live bool) error {
	var version, atVersion, err = args.uint("version")
	if err != nil {
		return err
	}

	var kvs []txn.Pair
	if live {
		kvs, err = args.keyValues()
	} else {
		for _, arg := range args.rest() {
			var key []byte
			if key, err = decodeBytes(arg.Value); err != nil {
				break
			}
			kvs = append(kvs, txn.Pair{Key: key})
		}
	}
	if err != nil {
		return err
	} else if err = args.done(); err != nil {
		return err
	}

	var apply = func(t *txn.Txn) error {
		for _, kv := range kvs {
			var err error
			if live {
				err = t.Set(kv.Key, kv.Val)
			} else {
				err = t.Remove(kv.Key)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}

	if atVersion {
		if err = noTxn(cmd); err != nil {
			return err
		}
		return r.db.Import(version, apply)
	}
	t, err := r.txn(cmd)
	if err != nil {
		return err
	}
	return apply(t)
}

func (r *Runner) txn(cmd Command) (*txn.Txn, error) {
	if cmd.Prefix == "" {
		return nil, errors.Errorf("%s requires a transaction name", cmd.Name)
	} else if t, ok := r.txns[cmd.Prefix]; !ok {
		return nil, errors.Errorf("unknown transaction %s", cmd.Prefix)
	} else {
		return t, nil
	}
}

func noTxn(cmd Command) error {
	if cmd.Prefix != "" {
		return errors.Errorf("%s can't run within transaction %s", cmd.Name, cmd.Prefix)
	}
	return nil
}

func printMaybe(out *strings.Builder, key, value []byte, ok bool) {
	if ok {
		fmt.Fprintf(out, "%q → %q\n", key, value)
	} else {
		fmt.Fprintf(out, "%q → None\n", key)
	}
}
