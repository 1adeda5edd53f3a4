/*
store.go - Persistence contract for the ledger engine

PURPOSE:
  Defines the boundary between the engine and durable storage. The engine
  owns all rows between calls; a Store only loads a full Snapshot and
  commits changes back. It never caches entity state.

KEY INTERFACES:
  Store:     bulk contract (LoadAll, SaveAll) - every backend implements it
  TxStore:   row-level contract (WithTx + RowWriter) for backends that can
             apply individual statements inside one transaction
  RowWriter: Insert / Update / Delete of single rows

COMMIT STRATEGY:
  The engine checks for TxStore first. Row-level backends receive only the
  rows an operation touched, inside one transaction. Bulk backends receive
  the whole post-mutation Snapshot through SaveAll.

IMPLEMENTATIONS:
  - inventory/store/memory.go: in-memory TxStore (tests, dev)
  - store/sqlstore: SQLite / PostgreSQL TxStore
  - store/filestore: YAML document Store (bulk rewrite, atomic rename)

SEE ALSO:
  - engine.go: commit() chooses the strategy
*/
package inventory

import (
	"context"
	"fmt"
)

// Store loads and saves the whole dataset.
type Store interface {
	// LoadAll returns every row of every collection in insertion order.
	LoadAll(ctx context.Context) (Snapshot, error)

	// SaveAll replaces the stored dataset with snap.
	SaveAll(ctx context.Context, snap Snapshot) error
}

// TxStore is a Store that can apply row-level changes atomically.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(RowWriter) error) error
}

// RowWriter applies single-row changes inside a transaction.
type RowWriter interface {
	// Insert adds row. A primary-key collision returns *DuplicateKeyError.
	Insert(ctx context.Context, row Row) error

	// Update replaces the stored row with the same key. A missing row
	// returns *NotFoundError.
	Update(ctx context.Context, row Row) error

	// Delete removes the row of entity stored under key.
	Delete(ctx context.Context, entity Entity, key string) error
}

// =============================================================================
// CHANGES
// =============================================================================

// Op is a row-level change kind.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one row mutation produced by an engine operation.
// Row is set for inserts and updates; Entity and Key always are.
type Change struct {
	Op     Op
	Entity Entity
	Key    string
	Row    Row
}

// Apply writes c through w.
func (c Change) Apply(ctx context.Context, w RowWriter) error {
	switch c.Op {
	case OpInsert:
		return w.Insert(ctx, c.Row)
	case OpUpdate:
		return w.Update(ctx, c.Row)
	case OpDelete:
		return w.Delete(ctx, c.Entity, c.Key)
	default:
		return fmt.Errorf("apply %s %q: unknown change op %q", c.Entity, c.Key, c.Op)
	}
}
