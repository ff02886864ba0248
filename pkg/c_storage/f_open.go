package storage

import (
	"github.com/pkg/errors"
)

// Config selects and configures a Store backend.
type Config struct {
	Backend string `long:"backend" env:"BACKEND" default:"memory" choice:"memory" choice:"sqlite" choice:"postgres" choice:"rocksdb" description:"Ordered store backend"`
	DSN     string `long:"dsn" env:"DSN" default:":memory:" description:"SQLite file or Postgres connection string (sqlite, postgres backends)"`
	Dir     string `long:"dir" env:"DIR" description:"Database directory (rocksdb backend)"`
}

// Open the Store described by the Config. The returned Store is Observed.
func Open(cfg Config) (Store, error) {
	var store Store
	var err error

	switch cfg.Backend {
	case "", "memory":
		store = NewMemStore()
	case "sqlite":
		store, err = OpenSQL(SQLite, cfg.DSN)
	case "postgres":
		store, err = OpenSQL(Postgres, cfg.DSN)
	case "rocksdb":
		store, err = OpenRocks(cfg.Dir)
	default:
		err = errors.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	return Observe(cfg.Backend, store), nil
}
