package sqlstore

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Dialect is the database/sql driver name of a supported database.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "pgx"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

func (d Dialect) schema() []string {
	// seq gives PostgreSQL rows a stable insertion order; SQLite has rowid.
	seq, createdAt := "", "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP"
	if d == Postgres {
		seq = "seq BIGSERIAL,"
		createdAt = `TEXT NOT NULL DEFAULT to_char(now() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')`
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS products (
			` + seq + `
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL DEFAULT 0,
			volume TEXT NOT NULL DEFAULT '',
			purchase_price TEXT NOT NULL DEFAULT '0',
			sale_price TEXT NOT NULL DEFAULT '0',
			market_price TEXT NOT NULL DEFAULT '0'
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			` + seq + `
			sale_code TEXT PRIMARY KEY,
			product_code TEXT NOT NULL,
			product_name TEXT NOT NULL,
			vendor_id TEXT NOT NULL DEFAULT '',
			quantity_sold INTEGER NOT NULL DEFAULT 1,
			created_at ` + createdAt + `
		)`,
		// Soft references: no foreign keys, confirmed deletes leave orphans.
		`CREATE INDEX IF NOT EXISTS idx_sales_product ON sales(product_code)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_vendor ON sales(vendor_id)`,
		`CREATE TABLE IF NOT EXISTS vendors (
			` + seq + `
			vendor_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL
		)`,
	}
}

// orderColumn is the column rows are loaded by.
func (d Dialect) orderColumn() string {
	if d == Postgres {
		return "seq"
	}
	return "rowid"
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
