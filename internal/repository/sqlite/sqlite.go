// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the server and the briefmectl
// binary build without a C toolchain and cross-compile like any Go program.
//
// LAYOUT:
//   - users            one row per email; the id is the owner namespace
//   - sessions         the current session record per user (overwritten on login)
//   - collections      user_id → JSON array of briefings (overwritten on save)
//   - briefing_owners  briefing_id → user_id, rewritten with each collection save
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// busyTimeout is how long a connection waits for another writer's lock
// before giving up with SQLITE_BUSY.
const busyTimeout = 5 * time.Second

// dsn builds the connection string for path. Pragmas set in the DSN run on
// every connection the pool opens, not only on the first one:
//   - busy_timeout: concurrent writers queue instead of failing at once
//   - journal_mode(WAL): public form reads proceed while a collection is written
//   - foreign_keys(ON): off by default in SQLite; sessions reference users
//
// _txlock=immediate takes the write lock at BEGIN, so a transaction never
// has to upgrade a read lock while another writer holds the database.
func dsn(path string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_txlock=immediate",
		path, busyTimeout.Milliseconds(),
	)
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/briefme.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand new, empty database.
	// Pinning the pool to one connection keeps the schema visible to every query.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping forces a real connection so a bad path fails here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
//
//	db, err := sqlite.New("data/briefme.db")
//	if err != nil { ... }
//	defer db.Close()
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent, so migrate runs on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Display names arrived after the first release; older databases get the
	// column added in place.
	if err := db.addColumnIfNotExists("users", "name", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding name to users: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			started_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			user_id    TEXT PRIMARY KEY,
			data       TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating collections table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS briefing_owners (
			briefing_id TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_briefing_owners_user_id ON briefing_owners(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating briefing_owners table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent and safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
