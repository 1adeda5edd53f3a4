package inventory

import "slices"

// =============================================================================
// TABLE - Ordered keyed collection
// =============================================================================

// Table holds the rows of one entity keyed by primary key, iterating in
// insertion order.
type Table[T Row] struct {
	entity Entity
	keys   []string
	rows   map[string]T
}

func newTable[T Row](entity Entity) *Table[T] {
	return &Table[T]{entity: entity, rows: make(map[string]T)}
}

// Len returns the number of rows.
func (t *Table[T]) Len() int { return len(t.keys) }

// All returns a copy of the rows in insertion order.
func (t *Table[T]) All() []T {
	out := make([]T, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, t.rows[k])
	}
	return out
}

// Find returns the row stored under key.
func (t *Table[T]) Find(key string) (T, error) {
	row, ok := t.rows[key]
	if !ok {
		var zero T
		return zero, &NotFoundError{Entity: t.entity, Key: key}
	}
	return row, nil
}

// Has reports whether key is present.
func (t *Table[T]) Has(key string) bool {
	_, ok := t.rows[key]
	return ok
}

// Insert appends row. Fails if its key already exists.
func (t *Table[T]) Insert(row T) error {
	key := row.Key()
	if _, ok := t.rows[key]; ok {
		return &DuplicateKeyError{Entity: t.entity, Key: key}
	}
	t.keys = append(t.keys, key)
	t.rows[key] = row
	return nil
}

// Update replaces the row stored under key, keeping its position.
// The row's own key must equal key.
func (t *Table[T]) Update(key string, row T) error {
	if _, ok := t.rows[key]; !ok {
		return &NotFoundError{Entity: t.entity, Key: key}
	}
	if row.Key() != key {
		return &ValidationError{Field: primaryField(t.entity), Reason: "primary key cannot change"}
	}
	t.rows[key] = row
	return nil
}

// Delete removes the row stored under key and returns it together with its
// position, so the caller can compensate (stock reversal, rollback).
func (t *Table[T]) Delete(key string) (T, int, error) {
	row, ok := t.rows[key]
	if !ok {
		var zero T
		return zero, -1, &NotFoundError{Entity: t.entity, Key: key}
	}
	idx := slices.Index(t.keys, key)
	t.keys = slices.Delete(t.keys, idx, idx+1)
	delete(t.rows, key)
	return row, idx, nil
}

// insertAt puts row back at position idx. Used to undo a Delete.
func (t *Table[T]) insertAt(idx int, row T) {
	key := row.Key()
	if idx < 0 || idx > len(t.keys) {
		idx = len(t.keys)
	}
	t.keys = slices.Insert(t.keys, idx, key)
	t.rows[key] = row
}

// remove drops key without reporting. Used to undo an Insert.
func (t *Table[T]) remove(key string) {
	if idx := slices.Index(t.keys, key); idx >= 0 {
		t.keys = slices.Delete(t.keys, idx, idx+1)
	}
	delete(t.rows, key)
}

func (t *Table[T]) load(rows []T) error {
	keys := make([]string, 0, len(rows))
	byKey := make(map[string]T, len(rows))
	for _, row := range rows {
		key := row.Key()
		if _, ok := byKey[key]; ok {
			return &DuplicateKeyError{Entity: t.entity, Key: key}
		}
		if err := checkRow(row); err != nil {
			return &LoadError{Entity: t.entity, Key: key, Err: err}
		}
		keys = append(keys, key)
		byKey[key] = row
	}
	t.keys, t.rows = keys, byKey
	return nil
}

// =============================================================================
// REPOSITORY - One table per entity
// =============================================================================

// Repository is the in-memory owner of every row. It is not safe for
// concurrent use; the Engine serializes access.
type Repository struct {
	products *Table[Product]
	sales    *Table[Sale]
	vendors  *Table[Vendor]
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{
		products: newTable[Product](EntityProduct),
		sales:    newTable[Sale](EntitySale),
		vendors:  newTable[Vendor](EntityVendor),
	}
}

// Products returns the product table.
func (r *Repository) Products() *Table[Product] { return r.products }

// Sales returns the sale table.
func (r *Repository) Sales() *Table[Sale] { return r.sales }

// Vendors returns the vendor table.
func (r *Repository) Vendors() *Table[Vendor] { return r.vendors }

// LoadFrom replaces all rows with the contents of snap. On a duplicate key
// or an invalid row the repository is left as it was.
func (r *Repository) LoadFrom(snap Snapshot) error {
	next := NewRepository()
	if err := next.products.load(snap.Products); err != nil {
		return err
	}
	if err := next.sales.load(snap.Sales); err != nil {
		return err
	}
	if err := next.vendors.load(snap.Vendors); err != nil {
		return err
	}
	*r = *next
	return nil
}

// Snapshot returns a copy of every collection.
func (r *Repository) Snapshot() Snapshot {
	return Snapshot{
		Products: r.products.All(),
		Sales:    r.sales.All(),
		Vendors:  r.vendors.All(),
	}
}

// SalesReferencing returns the codes of sales that point at the given
// product or vendor, in insertion order.
func (r *Repository) SalesReferencing(entity Entity, key string) []string {
	var codes []string
	for _, s := range r.sales.All() {
		switch {
		case entity == EntityProduct && s.ProductCode == key,
			entity == EntityVendor && s.VendorID == key:
			codes = append(codes, s.Code)
		}
	}
	return codes
}

func primaryField(entity Entity) Field {
	switch entity {
	case EntityProduct:
		return FieldCode
	case EntitySale:
		return FieldSaleCode
	default:
		return FieldVendorID
	}
}
