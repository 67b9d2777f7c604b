// Package sqlstore implements the repository interfaces on database/sql,
// for SQLite (modernc.org/sqlite, pure Go) and PostgreSQL (pgx stdlib).
//
// ONE SET OF QUERIES, TWO DIALECTS:
// Every query is written with `?` placeholders and portable SQL
// (INSERT ... RETURNING, LOWER(), CAST, COALESCE). The dialect rebinds
// placeholders for PostgreSQL and translates driver errors into the
// apperror taxonomy. Schema lives in per-dialect goose migrations embedded
// in the binary.
//
// TRANSACTIONS:
// Each single-statement write is atomic on its own. Multi-statement work
// goes through Store.InTx, which hands out repositories bound to one
// *sql.Tx via dbx.WithTx.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sakif/literary-diary/internal/dbx"
	"github.com/sakif/literary-diary/internal/repository"
)

// Options configures Open.
type Options struct {
	// Driver is DriverSQLite (default) or DriverPostgres.
	Driver string
	// DSN is a file path or ":memory:" for SQLite, a connection URL for PostgreSQL.
	DSN string
	// MaxOpenConns caps the pool. Zero keeps the database/sql default.
	// In-memory SQLite always uses a single connection.
	MaxOpenConns int
	// Now overrides the clock used for date_logged and created_at.
	Now func() time.Time
}

// conn is the handle every repository works through: either the pool or a
// transaction, plus the dialect and clock.
type conn struct {
	db  *sql.DB // nil when bound to a transaction
	q   dbx.DBTX
	d   *dialect
	now func() time.Time
}

// Store owns the connection pool and hands out repositories.
type Store struct {
	conn
}

var _ repository.Store = (*Store)(nil)

// Open connects, verifies the connection and migrates the schema to the
// latest version.
//
//	store, err := sqlstore.Open(ctx, sqlstore.Options{DSN: "data/diary.db"})
//	if err != nil { ... }
//	defer store.Close()
func Open(ctx context.Context, opts Options) (*Store, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn := opts.DSN
	inMemory := false
	switch d {
	case sqliteDialect:
		inMemory = dsn == "" || dsn == ":memory:"
		if !inMemory {
			if err := ensureParentDir(dsn); err != nil {
				return nil, err
			}
		}
		dsn = sqliteDSN(dsn)
	case postgresDialect:
		if dsn == "" {
			return nil, errors.New("sqlstore: postgres requires a DSN")
		}
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s database: %w", d.name, err)
	}

	// Each connection to file::memory: is its own empty database.
	if inMemory {
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: pinging %s database: %w", d.name, err)
	}

	if err := migrateUp(ctx, db, d); err != nil {
		db.Close()
		return nil, err
	}

	now := func() time.Time { return time.Now() }
	if opts.Now != nil {
		now = opts.Now
	}

	return &Store{conn: conn{
		db: db,
		q:  db,
		d:  d,
		// Whole seconds in UTC keep stored timestamps comparable as text in SQLite.
		now: func() time.Time { return now().UTC().Truncate(time.Second) },
	}}, nil
}

// ensureParentDir creates the directory of a plain SQLite file path, like
// `mkdir -p`. URI-style DSNs are left to the driver.
func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") || strings.Contains(path, "?") {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlstore: creating database directory %s: %w", dir, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlstore: ping: %w", err)
	}
	return nil
}

// Driver reports which backend the store talks to.
func (s *Store) Driver() string {
	if s.d == postgresDialect {
		return DriverPostgres
	}
	return DriverSQLite
}

// DB exposes the pool for tooling (diaryctl status checks, tests).
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Users() repository.UserRepository        { return &UserDB{c: &s.conn} }
func (s *Store) Authors() repository.AuthorRepository    { return &AuthorDB{c: &s.conn} }
func (s *Store) Works() repository.WorkRepository        { return &WorkDB{c: &s.conn} }
func (s *Store) Reviews() repository.ReviewRepository    { return &ReviewDB{c: &s.conn} }
func (s *Store) Wishlist() repository.WishlistRepository { return &WishlistDB{c: &s.conn} }
func (s *Store) Catalog() repository.CatalogQueries      { return &CatalogDB{c: &s.conn} }

// InTx runs fn with repositories bound to a single transaction. Calling InTx
// on a store that is already transactional reuses the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return s.atomically(ctx, func(c *conn) error {
		return fn(&Store{conn: *c})
	})
}

// =========================================================================
// QUERY HELPERS
// =========================================================================

func (c *conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.rebind(query), args...)
}

func (c *conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.rebind(query), args...)
}

func (c *conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.rebind(query), args...)
}

// insertReturningID runs an INSERT ending in `RETURNING <id column>`.
func (c *conn) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := c.queryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// exists reports whether query (a `SELECT 1 ... WHERE ...`) matches a row.
func (c *conn) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := c.queryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// atomically runs fn inside a transaction, or directly when c already is one.
func (c *conn) atomically(ctx context.Context, fn func(c *conn) error) error {
	if c.db == nil {
		return fn(c)
	}
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(&conn{q: tx, d: c.d, now: c.now})
	})
}

// requireAffected maps "no rows changed" to the given not-found error.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// dateOnly strips the clock from t, keeping its calendar day, at midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
