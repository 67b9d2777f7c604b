package sqlstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect captures everything that differs between the two backends.
// Queries are written once with `?` placeholders and rebound per dialect.
type dialect struct {
	name       string // migrations sub-directory
	driverName string // database/sql driver registered by the blank import
	goose      goose.Dialect
	numbered   bool // $1, $2, ... placeholders
	classify   func(err error) violation
}

var (
	sqliteDialect = &dialect{
		name:       "sqlite",
		driverName: "sqlite",
		goose:      goose.DialectSQLite3,
		classify:   classifySQLite,
	}
	postgresDialect = &dialect{
		name:       "postgres",
		driverName: "pgx",
		goose:      goose.DialectPostgres,
		numbered:   true,
		classify:   classifyPostgres,
	}
)

func dialectFor(driver string) (*dialect, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite, "sqlite3":
		return sqliteDialect, nil
	case DriverPostgres, "postgresql", "pgx":
		return postgresDialect, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

// rebind rewrites `?` placeholders into `$n` for dialects that need it.
// Queries in this package never contain a literal question mark.
func (d *dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// sqliteDSN turns a path (or ":memory:") into a modernc DSN with the
// per-connection pragmas every pooled connection needs.
//
// PRAGMAS VIA THE DSN:
// database/sql keeps a pool. `PRAGMA foreign_keys=ON` run through db.Exec only
// reaches whichever connection executed it. `_pragma=` parameters are applied
// by the driver to every new connection.
func sqliteDSN(path string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
		"_txlock=immediate",
	}
	if path == "" || path == ":memory:" {
		return "file::memory:?" + strings.Join(params, "&")
	}
	if !strings.Contains(path, "mode=memory") {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

// =========================================================================
// ERROR CLASSIFICATION
// =========================================================================

type violationKind int

const (
	noViolation violationKind = iota
	uniqueViolation
	foreignKeyViolation
	checkViolation
	notNullViolation
)

// violation is a driver error reduced to what the repositories care about.
// detail is the driver's message (SQLite) or constraint name (PostgreSQL),
// used to tell which column collided.
type violation struct {
	kind   violationKind
	detail string
}

func (v violation) mentions(column string) bool {
	return strings.Contains(strings.ToLower(v.detail), column)
}

func classifySQLite(err error) violation {
	if err == nil {
		return violation{}
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return violation{kind: uniqueViolation, detail: se.Error()}
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return violation{kind: foreignKeyViolation, detail: se.Error()}
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return violation{kind: checkViolation, detail: se.Error()}
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return violation{kind: notNullViolation, detail: se.Error()}
		}
	}

	// Fall back to the message when extended codes are unavailable.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return violation{kind: uniqueViolation, detail: msg}
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return violation{kind: foreignKeyViolation, detail: msg}
	case strings.Contains(msg, "CHECK constraint failed"):
		return violation{kind: checkViolation, detail: msg}
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return violation{kind: notNullViolation, detail: msg}
	}
	return violation{}
}

// SQLSTATE codes from the integrity_constraint_violation class.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

func classifyPostgres(err error) violation {
	var pe *pgconn.PgError
	if !errors.As(err, &pe) {
		return violation{}
	}
	detail := pe.ConstraintName
	if pe.ColumnName != "" {
		detail += " " + pe.ColumnName
	}
	switch pe.Code {
	case pgUniqueViolation:
		return violation{kind: uniqueViolation, detail: detail}
	case pgForeignKeyViolation:
		return violation{kind: foreignKeyViolation, detail: detail}
	case pgCheckViolation:
		return violation{kind: checkViolation, detail: detail}
	case pgNotNullViolation:
		return violation{kind: notNullViolation, detail: detail}
	}
	return violation{}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern and prefixPattern lowercase a user query, escape LIKE
// metacharacters and add wildcards. Queries using them declare ESCAPE '\'.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
}

func prefixPattern(q string) string {
	return likeEscaper.Replace(strings.ToLower(q)) + "%"
}
