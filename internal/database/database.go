// Package database opens the sqlite record store and applies the schema
// migrations.
package database

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the sqlite handle shared by every service.
type DB struct {
	*sql.DB
}

// New opens the database at dbPath, creating parent directories as needed.
// The scheduler tick and the API write concurrently, so the connection
// runs in WAL mode with a busy timeout instead of failing fast on lock
// contention. Foreign keys back the device cascade deletes.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, err
	}

	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// Migrate applies the schema migrations in order.
func (db *DB) Migrate() error {
	return runMigrations(db.DB)
}
