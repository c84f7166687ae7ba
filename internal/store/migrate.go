package store

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every pending migration for the store's dialect.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations/"+s.dialect)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	defer src.Close()

	var drv database.Driver
	switch s.dialect {
	case dialectPostgres:
		drv, err = pgxmigrate.WithInstance(s.DB.DB, &pgxmigrate.Config{})
	default:
		drv, err = sqlitemigrate.WithInstance(s.DB.DB, &sqlitemigrate.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to prepare migration driver: %w", err)
	}

	// m is not closed: that would close the shared *sql.DB
	m, err := migrate.NewWithInstance("iofs", src, s.dialect, drv)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("Database schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, _ := m.Version()
	slog.Info("Applied migrations", "version", version)
	return nil
}
