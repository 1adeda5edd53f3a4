// Package store provides an in-memory inventory.TxStore.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps the dataset in process memory. Rows are stored by value so
// callers never share state with the store.
type Memory struct {
	mu       sync.RWMutex
	products []inventory.Product
	sales    []inventory.Sale
	vendors  []inventory.Vendor
}

var _ inventory.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

// LoadAll returns a copy of every collection.
func (m *Memory) LoadAll(_ context.Context) (inventory.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(), nil
}

// SaveAll replaces the dataset with snap.
func (m *Memory) SaveAll(_ context.Context, snap inventory.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restore(snap)
	return nil
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(inventory.RowWriter) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(before)
		return err
	}
	return nil
}

func (m *Memory) snapshot() inventory.Snapshot {
	return inventory.Snapshot{
		Products: slices.Clone(m.products),
		Sales:    slices.Clone(m.sales),
		Vendors:  slices.Clone(m.vendors),
	}
}

func (m *Memory) restore(s inventory.Snapshot) {
	m.products = slices.Clone(s.Products)
	m.sales = slices.Clone(s.Sales)
	m.vendors = slices.Clone(s.Vendors)
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

// txView writes straight into the parent; the parent holds the lock and
// restores its snapshot if the transaction fails.
type txView struct {
	parent *Memory
}

func (tv *txView) Insert(_ context.Context, row inventory.Row) error {
	switch r := row.(type) {
	case inventory.Product:
		return insertRow(&tv.parent.products, r)
	case inventory.Sale:
		return insertRow(&tv.parent.sales, r)
	case inventory.Vendor:
		return insertRow(&tv.parent.vendors, r)
	}
	return unknownRow(row)
}

func (tv *txView) Update(_ context.Context, row inventory.Row) error {
	switch r := row.(type) {
	case inventory.Product:
		return updateRow(tv.parent.products, r)
	case inventory.Sale:
		return updateRow(tv.parent.sales, r)
	case inventory.Vendor:
		return updateRow(tv.parent.vendors, r)
	}
	return unknownRow(row)
}

func (tv *txView) Delete(_ context.Context, entity inventory.Entity, key string) error {
	switch entity {
	case inventory.EntityProduct:
		return deleteRow(&tv.parent.products, entity, key)
	case inventory.EntitySale:
		return deleteRow(&tv.parent.sales, entity, key)
	case inventory.EntityVendor:
		return deleteRow(&tv.parent.vendors, entity, key)
	}
	return &inventory.NotFoundError{Entity: entity, Key: key}
}

func indexOf[T inventory.Row](rows []T, key string) int {
	return slices.IndexFunc(rows, func(r T) bool { return r.Key() == key })
}

func insertRow[T inventory.Row](rows *[]T, row T) error {
	if indexOf(*rows, row.Key()) >= 0 {
		return &inventory.DuplicateKeyError{Entity: row.Entity(), Key: row.Key()}
	}
	*rows = append(*rows, row)
	return nil
}

func updateRow[T inventory.Row](rows []T, row T) error {
	i := indexOf(rows, row.Key())
	if i < 0 {
		return &inventory.NotFoundError{Entity: row.Entity(), Key: row.Key()}
	}
	rows[i] = row
	return nil
}

func deleteRow[T inventory.Row](rows *[]T, entity inventory.Entity, key string) error {
	i := indexOf(*rows, key)
	if i < 0 {
		return &inventory.NotFoundError{Entity: entity, Key: key}
	}
	*rows = slices.Delete(*rows, i, i+1)
	return nil
}

func unknownRow(row inventory.Row) error {
	return &inventory.ValidationError{Field: inventory.Field(row.Entity()), Reason: "unsupported row type"}
}
