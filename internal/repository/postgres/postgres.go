// Package postgres implements the repository interfaces on PostgreSQL through
// the pgx stdlib driver. Schema changes are goose migrations embedded in the
// binary.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/secret-share/internal/repository"
	"github.com/sakif/secret-share/internal/repository/postgres/migrations"

	// Registers the "pgx" driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DB implements repository.ItemRepository and repository.UserRepository.
type DB struct {
	conn *sql.DB
	opts repository.StoreOptions
}

// Open connects to dsn, verifies the connection and applies pending
// migrations.
func Open(ctx context.Context, dsn string, opts ...repository.Option) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := NewWithConn(conn, opts...)
	if err := db.RunMigrations(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return db, nil
}

// NewWithConn wraps an existing pool without touching the schema.
func NewWithConn(conn *sql.DB, opts ...repository.Option) *DB {
	return &DB{conn: conn, opts: repository.ApplyOptions(opts...)}
}

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// RunMigrations applies the embedded migrations.
func (db *DB) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUp(ctx, db.conn, ".")
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
