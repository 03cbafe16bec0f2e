package database

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"taskgate/internal/platform/config"
)

// Open connects to the sqlite database named by cfg.URL. A ":memory:" URL is
// pinned to a single connection so every caller sees the same database.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := strings.TrimPrefix(cfg.URL, "file:")

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		maxConns := cfg.MaxConnections
		if maxConns <= 0 {
			maxConns = 10
		}
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}
