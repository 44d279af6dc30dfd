// Package sqlite implements the repository interfaces on top of SQLite, the
// default single-node backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code.
//
// ONE CONNECTION:
// The pool is capped at a single connection. SQLite allows one writer at a
// time anyway, and a single connection means every statement, including the
// visit-count transaction, is serialized by database/sql instead of failing
// with SQLITE_BUSY. It also keeps ":memory:" databases alive: each new
// connection to ":memory:" would otherwise see an empty database.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/sakif/secret-share/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements both
// repository.ItemRepository and repository.UserRepository.
type DB struct {
	conn *sql.DB
	opts repository.StoreOptions
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/secret-share.db" → file-based database (persistent)
//   - ":memory:"             → in-memory database (tests)
func New(dbPath string, opts ...repository.Option) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		// WAL lets readers proceed while a write is in flight.
		"PRAGMA journal_mode=WAL",
		// Off by default in SQLite; items.owner_id relies on it.
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn, opts: repository.ApplyOptions(opts...)}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it idempotent.
//
// items.created_at is stored as Unix nanoseconds (UTC) so the active-window
// filter is a plain integer comparison.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			github_id       INTEGER NOT NULL UNIQUE,
			login           TEXT NOT NULL,
			email           TEXT NOT NULL DEFAULT '',
			avatar_url      TEXT NOT NULL DEFAULT '',
			last_user_agent TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Databases created before user-agent tracking lack the column.
	if err := db.addColumnIfNotExists("users", "last_user_agent",
		"TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding last_user_agent to users: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id            TEXT PRIMARY KEY,
			uuid          TEXT NOT NULL UNIQUE,
			owner_id      TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
			created_at    INTEGER NOT NULL,
			password_hash TEXT NOT NULL,
			url           TEXT,
			file_key      TEXT,
			file_name     TEXT NOT NULL DEFAULT '',
			file_size     INTEGER NOT NULL DEFAULT 0,
			visit_count   INTEGER NOT NULL DEFAULT 0 CHECK (visit_count >= 0),
			CHECK ((url IS NULL) <> (file_key IS NULL))
		);
		CREATE INDEX IF NOT EXISTS idx_items_owner_id ON items(owner_id);
		CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
		CREATE INDEX IF NOT EXISTS idx_items_visited ON items(created_at) WHERE visit_count > 0;
	`)
	if err != nil {
		return fmt.Errorf("creating items table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent.
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
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
