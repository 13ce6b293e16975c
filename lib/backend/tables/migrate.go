package tables

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// schemaVersion is the version of the newest migration.
const schemaVersion = 1

// runMigrations applies all up migrations to db. The migrate instance is not
// closed because that would close db as well.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	defer src.Close()

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// checkSchema verifies the schema of a file opened read-only, where
// migrations cannot run.
func checkSchema(db *sql.DB) error {
	var (
		version int
		dirty   bool
	)
	err := db.QueryRow(`SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		return backend.Errorf(backend.RetCCorruptMetadata, "no schema version: %v", err)
	}
	if dirty || version != schemaVersion {
		return backend.Errorf(backend.RetCCorruptMetadata, "schema version %d (dirty=%v), expected %d", version, dirty, schemaVersion)
	}
	return nil
}
