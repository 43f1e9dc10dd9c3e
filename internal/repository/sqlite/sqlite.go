// Package sqlite implements the Record Store on an embedded SQLite database.
//
// modernc.org/sqlite is a pure Go build of SQLite, so the service ships as a
// single static binary with its database file next to it.
//
// The pool is capped at one connection. SQLite allows a single writer per
// database anyway; funnelling every statement through one connection makes
// that writer the serialisation point for all rows and keeps ":memory:"
// databases coherent across calls.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/privachat/statledger/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// busyTimeout bounds how long a statement waits on a lock held by another
// process sharing the same database file.
const busyTimeout = 5 * time.Second

// DB wraps a sql.DB connection pool and provides the Record Store methods.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens (creating if needed) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/privachat.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn appends the connection pragmas. modernc applies every _pragma on each
// new connection, so they survive the pool replacing a broken connection.
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		dbPath, sep, busyTimeout.Milliseconds())
}

// Ping verifies the database is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the two ledger tables. Timestamps are unix seconds.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			user_id      TEXT PRIMARY KEY,
			display_name TEXT,
			avatar_url   TEXT,
			bio          TEXT,
			created_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS stats (
			user_id      TEXT PRIMARY KEY,
			xp           INTEGER NOT NULL DEFAULT 0,
			messages     INTEGER NOT NULL DEFAULT 0,
			calls        INTEGER NOT NULL DEFAULT 0,
			last_updated INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`)
	if err != nil {
		return fmt.Errorf("creating stats table: %w", err)
	}

	return nil
}
