package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS detection_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL,
		confidence REAL NOT NULL,
		detected_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_label ON detection_events(label);
	CREATE INDEX IF NOT EXISTS idx_events_detected_at ON detection_events(detected_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Conn exposes the underlying connection to repositories in this package.
func (db *DB) Conn() *sql.DB { return db.conn }

// Lock acquires the write lock.
func (db *DB) Lock() { db.mu.Lock() }

// Unlock releases the write lock.
func (db *DB) Unlock() { db.mu.Unlock() }

// RLock acquires the read lock.
func (db *DB) RLock() { db.mu.RLock() }

// RUnlock releases the read lock.
func (db *DB) RUnlock() { db.mu.RUnlock() }

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
