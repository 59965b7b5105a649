// Package database opens SQL connections for the JSON document tables used
// by the "postgres" and "mysql" store drivers.
package database

import (
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/brightchat/fieldvault/internal/errors"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Config holds connection settings for the SQL-backed document stores.
type Config struct {
	Driver             string // "postgres" or "mysql"
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Connect establishes a pooled database connection and verifies it with a
// ping. An unknown driver is a configuration error; a failed ping reports
// the store as unavailable.
func Connect(cfg Config) (*sql.DB, error) {
	switch cfg.Driver {
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("%w: unsupported sql driver %q", apperrors.ErrConfiguration, cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", apperrors.ErrConfiguration, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", apperrors.ErrUnavailable, err)
	}

	return db, nil
}
