package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver ("pgx")
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

type Store struct {
	DB      *sqlx.DB
	dialect string
}

// NewStore opens a Postgres database for postgres:// URLs and a SQLite file
// (or ":memory:") for anything else.
func NewStore(dataSourceName string) (*Store, error) {
	driver, dialect := "sqlite", dialectSQLite
	if strings.HasPrefix(dataSourceName, "postgres://") || strings.HasPrefix(dataSourceName, "postgresql://") {
		driver, dialect = "pgx", dialectPostgres
	}

	db, err := sqlx.Open(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == dialectSQLite {
		// one writer, and ":memory:" must stay on a single connection
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	slog.Debug("Database opened", "dialect", dialect)
	return &Store{DB: db, dialect: dialect}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
