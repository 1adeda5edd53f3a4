/*
Package sqlstore provides a relational implementation of inventory.TxStore.

PURPOSE:
  Persists products, sales and vendors in one table each, plus a
  credentials table for the login gate. The same code drives SQLite
  (mattn/go-sqlite3) and PostgreSQL (pgx stdlib driver); only the schema
  and the placeholder style differ.

KEY TABLES:
  products:    code PK, prices stored as decimal strings
  sales:       sale_code PK, soft references to product_code / vendor_id
  vendors:     vendor_id PK
  credentials: username PK, bcrypt password_hash

ORDERING:
  Rows load in insertion order. SQLite uses the implicit rowid; the
  PostgreSQL schema carries a seq BIGSERIAL column for the same purpose.
  UPDATE keeps a row's position in both.

COMMIT MODES:
  WithTx: the engine's row changes inside one database transaction
  SaveAll: delete everything and re-insert the snapshot, one transaction

ERRORS:
  Primary-key collision -> *inventory.DuplicateKeyError
  Update/delete of a missing row -> *inventory.NotFoundError
  Anything else -> wrapped driver error

USAGE:
  store, err := sqlstore.OpenSQLite("./data/estoque.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := inventory.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on open with CREATE TABLE IF NOT EXISTS.

SEE ALSO:
  - inventory/store.go: Store / TxStore contract
  - dialect.go: per-database schema, placeholders, error codes
*/
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JhonneBoy/sistema-estoque-vendas/auth"
	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
)

// Store implements inventory.TxStore and auth.CredentialSource on a SQL
// database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
}

var (
	_ inventory.TxStore     = (*Store)(nil)
	_ auth.CredentialSource = (*Store)(nil)
)

// OpenSQLite opens (and creates) the SQLite database at path.
// Use ":memory:" for an in-memory database.
func OpenSQLite(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection and SQLite
	// allows a single writer anyway.
	db.SetMaxOpenConns(1)
	return open(db, SQLite)
}

// OpenPostgres connects to PostgreSQL through the pgx stdlib driver.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return open(db, Postgres)
}

func open(db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect reports which database the store talks to.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// =============================================================================
// BULK CONTRACT
// =============================================================================

// LoadAll reads every table in insertion order.
func (s *Store) LoadAll(ctx context.Context) (inventory.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap inventory.Snapshot
	var err error
	if snap.Products, err = loadRows(ctx, s, s.db, productTable, scanProduct); err != nil {
		return inventory.Snapshot{}, err
	}
	if snap.Sales, err = loadRows(ctx, s, s.db, saleTable, scanSale); err != nil {
		return inventory.Snapshot{}, err
	}
	if snap.Vendors, err = loadRows(ctx, s, s.db, vendorTable, scanVendor); err != nil {
		return inventory.Snapshot{}, err
	}
	return snap, nil
}

// SaveAll replaces every row with the contents of snap in one transaction.
func (s *Store) SaveAll(ctx context.Context, snap inventory.Snapshot) error {
	return s.WithTx(ctx, func(w inventory.RowWriter) error {
		rw := w.(*rowWriter)
		for _, t := range []table{saleTable, productTable, vendorTable} {
			if _, err := rw.tx.ExecContext(ctx, "DELETE FROM "+t.name); err != nil {
				return fmt.Errorf("clear %s: %w", t.name, err)
			}
		}
		for _, p := range snap.Products {
			if err := rw.Insert(ctx, p); err != nil {
				return err
			}
		}
		for _, sale := range snap.Sales {
			if err := rw.Insert(ctx, sale); err != nil {
				return err
			}
		}
		for _, v := range snap.Vendors {
			if err := rw.Insert(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.RowWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&rowWriter{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rowWriter applies row changes through the open transaction only.
type rowWriter struct {
	tx     *sql.Tx
	parent *Store
}

func (rw *rowWriter) Insert(ctx context.Context, row inventory.Row) error {
	t, ok := tableFor(row.Entity())
	if !ok {
		return fmt.Errorf("insert: unknown entity %q", row.Entity())
	}
	vals, err := t.values(row)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(t.columns, ", "), placeholders(len(t.columns)))
	if _, err := rw.tx.ExecContext(ctx, rw.parent.rebind(query), vals...); err != nil {
		if isUniqueConstraintError(err) {
			return &inventory.DuplicateKeyError{Entity: row.Entity(), Key: row.Key()}
		}
		return fmt.Errorf("insert %s %q: %w", t.name, row.Key(), err)
	}
	return nil
}

func (rw *rowWriter) Update(ctx context.Context, row inventory.Row) error {
	t, ok := tableFor(row.Entity())
	if !ok {
		return fmt.Errorf("update: unknown entity %q", row.Entity())
	}
	vals, err := t.values(row)
	if err != nil {
		return err
	}
	sets := make([]string, 0, len(t.columns)-1)
	for _, c := range t.columns[1:] {
		sets = append(sets, c+" = ?")
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", t.name, strings.Join(sets, ", "), t.key())
	args := append(slices.Clone(vals[1:]), vals[0])

	res, err := rw.tx.ExecContext(ctx, rw.parent.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("update %s %q: %w", t.name, row.Key(), err)
	}
	return expectOne(res, row.Entity(), row.Key())
}

func (rw *rowWriter) Delete(ctx context.Context, entity inventory.Entity, key string) error {
	t, ok := tableFor(entity)
	if !ok {
		return fmt.Errorf("delete: unknown entity %q", entity)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.name, t.key())
	res, err := rw.tx.ExecContext(ctx, rw.parent.rebind(query), key)
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", t.name, key, err)
	}
	return expectOne(res, entity, key)
}

func expectOne(res sql.Result, entity inventory.Entity, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &inventory.NotFoundError{Entity: entity, Key: key}
	}
	return nil
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// LoadCredentials returns every stored login.
func (s *Store) LoadCredentials(ctx context.Context) ([]auth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT username, password_hash FROM credentials ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	defer rows.Close()

	var creds []auth.Credential
	for rows.Next() {
		var c auth.Credential
		if err := rows.Scan(&c.User, &c.PasswordHash); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// PutCredential inserts or replaces a login.
func (s *Store) PutCredential(ctx context.Context, c auth.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO credentials (username, password_hash) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash
	`), c.User, c.PasswordHash)
	if err != nil {
		return fmt.Errorf("put credential %q: %w", c.User, err)
	}
	return nil
}
