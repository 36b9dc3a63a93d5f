package db

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/banshee-data/drivecoach/internal/monitoring"
)

// MigrateUp applies every pending migration in migrationsFS. Being current
// already is not an error.
func (db *DB) MigrateUp(migrationsFS fs.FS) error {
	return db.migrate(migrationsFS, "up", func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown reverts the latest applied migration.
func (db *DB) MigrateDown(migrationsFS fs.FS) error {
	return db.migrate(migrationsFS, "down", func(m *migrate.Migrate) error { return m.Steps(-1) })
}

// MigrateVersion reports the schema version, 0 when nothing is applied.
func (db *DB) MigrateVersion(migrationsFS fs.FS) (uint, bool, error) {
	m, err := db.migrator(migrationsFS)
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (db *DB) migrate(migrationsFS fs.FS, dir string, step func(*migrate.Migrate) error) error {
	m, err := db.migrator(migrationsFS)
	if err != nil {
		return err
	}
	// m is left open: its Close would close db.DB as well.
	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	return nil
}

func (db *DB) migrator(migrationsFS fs.FS) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	drv, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return nil, err
	}
	m.Log = migrateLog{}
	return m, nil
}

// migrateLog routes golang-migrate output through monitoring.Logf.
type migrateLog struct{}

func (migrateLog) Printf(format string, v ...interface{}) { monitoring.Logf("[migrate] "+format, v...) }
func (migrateLog) Verbose() bool                           { return false }
