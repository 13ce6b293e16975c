package tables

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/lni/dragonboat/v4/logger"
	_ "github.com/mattn/go-sqlite3"
)

var Logger = logger.GetLogger("tables")

// Magic starts every SQLite database file.
const Magic = "SQLite format 3\x00"

type options struct {
	busyTimeout time.Duration
}

// Option configures a Driver.
type Option func(*options)

// WithBusyTimeout sets how long SQLite waits for a lock held by another
// connection before failing.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = d
	}
}

// Driver opens container files stored as SQLite databases. It implements the
// table oriented backend (tables).
type Driver struct {
	opts options
}

// NewDriver creates a driver with a 5 second busy timeout unless configured
// otherwise.
func NewDriver(opts ...Option) *Driver {
	o := options{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver{opts: o}
}

func (d *Driver) ID() backend.ID {
	return backend.IDTables
}

// Probe opens an in-memory database and asks for the library version.
func (d *Driver) Probe() error {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	var version string
	if err := db.QueryRow(`SELECT sqlite_version()`).Scan(&version); err != nil {
		return err
	}
	Logger.Debugf("sqlite %s", version)
	return nil
}

// Recognize reports whether header starts a SQLite database.
func (d *Driver) Recognize(header []byte) bool {
	return bytes.HasPrefix(header, []byte(Magic))
}

// Open opens the container at path with h5py mode semantics.
func (d *Driver) Open(path string, mode backend.Mode) (backend.IBackend, error) {
	if _, err := backend.ParseMode(string(mode)); err != nil {
		return nil, err
	}

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return nil, statErr
	}

	switch mode {
	case backend.ModeRead, backend.ModeReadWrite:
		if !exists {
			return nil, backend.Errorf(backend.RetCNotFound, "file %s does not exist", path)
		}
	case backend.ModeWrite:
		if exists {
			if err := os.Remove(path); err != nil {
				return nil, fmt.Errorf("truncate %s: %w", path, err)
			}
		}
	}

	db, err := d.openDB(path, mode)
	if err != nil {
		return nil, err
	}

	if mode.Writable() {
		err = runMigrations(db)
	} else {
		err = checkSchema(db)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare %s: %w", path, err)
	}

	Logger.Debugf("opened %s (mode %s)", path, mode)
	return &session{path: path, mode: mode, db: db, open: true}, nil
}

// dsn builds the sqlite URI of path. The path is escaped, '?' and '#' are
// part of the file name.
func (d *Driver) dsn(path string, mode backend.Mode) string {
	query := url.Values{}
	query.Set("_foreign_keys", "on")
	query.Set("_busy_timeout", fmt.Sprint(d.opts.busyTimeout.Milliseconds()))
	if !mode.Writable() {
		query.Set("mode", "ro")
	}
	u := url.URL{Scheme: "file", Opaque: (&url.URL{Path: path}).EscapedPath(), RawQuery: query.Encode()}
	return u.String()
}

// openDB opens sqlite with the defaults of this backend: foreign keys on,
// busy timeout and a single connection.
func (d *Driver) openDB(path string, mode backend.Mode) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", d.dsn(path, mode))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
