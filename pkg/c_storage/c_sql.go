package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Dialect captures the differences between SQL databases used as an ordered
// store. Both dialects compare BLOB / BYTEA values bytewise, which is the
// ordering the Store contract requires.
type Dialect struct {
	Name     string // Backend name, also used for metrics.
	Driver   string // database/sql driver name.
	BlobType string // Column type of keys and values.
	Numbered bool   // Placeholders are $1, $2, ... rather than ?.
}

var (
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite3", BlobType: "BLOB"}
	Postgres = Dialect{Name: "postgres", Driver: "postgres", BlobType: "BYTEA", Numbered: true}
)

// rebind rewrites ? placeholders of |query| for the dialect.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	var n int
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SQLStore is a Store implementation which utilizes a database having a
// "database/sql" compatible driver. Pairs live in a single table having a
// schema like:
//
//	CREATE TABLE mvcc_kv (
//	  k BLOB PRIMARY KEY NOT NULL,
//	  v BLOB NOT NULL
//	);
//
// which NewSQLStore creates if it doesn't already exist.
type SQLStore struct {
	DB *sql.DB

	dialect Dialect
	table   string
}

var _ Store = new(SQLStore)

// OpenSQL opens |dsn| with the |dialect|'s driver and returns a SQLStore.
func OpenSQL(dialect Dialect, dsn string) (*SQLStore, error) {
	var db, err = sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s store", dialect.Name)
	}
	if dialect.Driver == SQLite.Driver {
		// Each SQLite connection to ":memory:" is a distinct database,
		// and SQLite serializes writers regardless.
		db.SetMaxOpenConns(1)
	}
	store, err := NewSQLStore(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore returns a new SQLStore using the *DB, creating its table.
func NewSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	var s = &SQLStore{DB: db, dialect: dialect, table: "mvcc_kv"}

	if _, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			k %s PRIMARY KEY NOT NULL,
			v %s NOT NULL
		);`, s.table, dialect.BlobType, dialect.BlobType)); err != nil {
		return nil, errors.Wrap(err, "creating store table")
	}
	return s, nil
}

func (s *SQLStore) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	var err = s.DB.QueryRow(s.dialect.rebind(fmt.Sprintf(
		"SELECT v FROM %s WHERE k = ?;", s.table)), key).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Wrap(err, "store get")
	}
	return value, true, nil
}

func (s *SQLStore) Set(key, value []byte) error {
	if value == nil {
		value = []byte{} // A nil []byte binds as NULL.
	}
	var _, err = s.DB.Exec(s.dialect.rebind(fmt.Sprintf(`
		INSERT INTO %s (k, v) VALUES (?, ?)
		ON CONFLICT (k) DO UPDATE SET v = excluded.v;`, s.table)), key, value)
	return errors.Wrap(err, "store set")
}

func (s *SQLStore) Delete(key []byte) error {
	var _, err = s.DB.Exec(s.dialect.rebind(fmt.Sprintf(
		"DELETE FROM %s WHERE k = ?;", s.table)), key)
	return errors.Wrap(err, "store delete")
}

func (s *SQLStore) Scan(rng Range, reverse bool, fn func(key, value []byte) bool) error {
	var where []string
	var args []interface{}

	switch rng.Start.Kind {
	case Included:
		where, args = append(where, "k >= ?"), append(args, rng.Start.Key)
	case Excluded:
		where, args = append(where, "k > ?"), append(args, rng.Start.Key)
	}
	switch rng.End.Kind {
	case Included:
		where, args = append(where, "k <= ?"), append(args, rng.End.Key)
	case Excluded:
		where, args = append(where, "k < ?"), append(args, rng.End.Key)
	}

	var query = fmt.Sprintf("SELECT k, v FROM %s", s.table)
	if len(where) != 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if reverse {
		query += " ORDER BY k DESC;"
	} else {
		query += " ORDER BY k ASC;"
	}

	rows, err := s.DB.Query(s.dialect.rebind(query), args...)
	if err != nil {
		return errors.Wrap(err, "store scan")
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err = rows.Scan(&key, &value); err != nil {
			return errors.Wrap(err, "store scan")
		}
		if !fn(key, value) {
			return nil
		}
	}
	return errors.Wrap(rows.Err(), "store scan")
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}
