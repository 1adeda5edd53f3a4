/*
engine.go - Ledger engine: validated, atomic operations on the repository

PURPOSE:
  The Engine is the only writer of products, sales and vendors. Every
  mutating call runs the same four steps:

    Validate -> Stage -> Commit -> Acknowledge

  Validation happens before any row is touched. Staging mutates the
  in-memory Repository through a unit of work that records an undo step
  for every change. Commit hands the staged changes to the Store; if the
  store fails, the undo steps run in reverse and the caller gets a
  PersistenceError with the repository exactly as it was before the call.

STOCK RECONCILIATION:
  CreateSale: product.quantity -= sold
  DeleteSale: product.quantity += sold      (skipped if product is gone)
  EditSale:   old product += old sold, new product -= new sold
              (same product: net delta), validated against a staged view
              before either product is touched

SOFT REFERENCES:
  Sales point at products and vendors by key. Deleting a referenced
  product or vendor needs confirmed=true, otherwise ReferencedRowWarning.
  Confirmed deletes leave orphaned sales that keep their product name.

CONCURRENCY:
  One writer. A mutex serializes every engine call, so callers such as the
  HTTP layer may invoke it from several goroutines.

SEE ALSO:
  - validation.go: input parsing and stock checks
  - store.go: Store / TxStore contract used by commit
  - errors.go: error taxonomy
*/
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Engine orchestrates validation, repository mutation and persistence.
type Engine struct {
	mu     sync.Mutex
	store  Store
	repo   *Repository
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for commit and rollback diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp sales.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine with an empty repository. Call Load before
// serving requests.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		repo:   NewRepository(),
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// READ SIDE
// =============================================================================

// Load replaces the repository contents with the store's dataset.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.store.LoadAll(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}
	if err := e.repo.LoadFrom(snap); err != nil {
		return err
	}
	e.logger.Info("dataset loaded",
		slog.Int("products", len(snap.Products)),
		slog.Int("sales", len(snap.Sales)),
		slog.Int("vendors", len(snap.Vendors)))
	return nil
}

// Snapshot returns a copy of every collection for display.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repo.Snapshot()
}

// NextSaleCode previews the code the next CreateSale will assign.
func (e *Engine) NextSaleCode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return NextSaleCode(e.repo.sales.All())
}

// IsLowStock reports whether p is below LowStockThreshold.
func (e *Engine) IsLowStock(p Product) bool {
	return IsLowStock(p)
}

// LowStock returns the products below LowStockThreshold, in insertion order.
func (e *Engine) LowStock() []Product {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Product
	for _, p := range e.repo.products.All() {
		if IsLowStock(p) {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// PRODUCTS
// =============================================================================

// CreateProduct validates data and inserts a new product.
func (e *Engine) CreateProduct(ctx context.Context, data Fields) (Product, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}

	p, err := ParseProduct(data)
	if err != nil {
		return Product{}, err
	}
	u := e.begin()
	if err := stageInsert(u, e.repo.products, p); err != nil {
		return Product{}, err
	}
	if err := e.commit(ctx, "create product", u); err != nil {
		return Product{}, err
	}
	return p, nil
}

// UpdateProduct replaces the product stored under code. The code itself
// cannot change. A direct quantity edit here is the baseline that later
// sales adjust.
func (e *Engine) UpdateProduct(ctx context.Context, code string, data Fields) (Product, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}

	code = Normalize(FieldCode, code)
	if _, err := e.repo.products.Find(code); err != nil {
		return Product{}, err
	}
	in, err := withKey(data, FieldCode, code)
	if err != nil {
		return Product{}, err
	}
	p, err := ParseProduct(in)
	if err != nil {
		return Product{}, err
	}
	u := e.begin()
	if err := stageUpdate(u, e.repo.products, p); err != nil {
		return Product{}, err
	}
	if err := e.commit(ctx, "update product", u); err != nil {
		return Product{}, err
	}
	return p, nil
}

// DeleteProduct removes a product. If sales still reference it and
// confirmed is false, nothing changes and a *ReferencedRowWarning is
// returned.
func (e *Engine) DeleteProduct(ctx context.Context, code string, confirmed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	code = Normalize(FieldCode, code)
	if _, err := e.repo.products.Find(code); err != nil {
		return err
	}
	if refs := e.repo.SalesReferencing(EntityProduct, code); len(refs) > 0 && !confirmed {
		return &ReferencedRowWarning{Entity: EntityProduct, Key: code, SaleCodes: refs}
	}
	u := e.begin()
	if _, err := stageDelete(u, e.repo.products, code); err != nil {
		return err
	}
	return e.commit(ctx, "delete product", u)
}

// =============================================================================
// VENDORS
// =============================================================================

// CreateVendor validates data and inserts a new vendor.
func (e *Engine) CreateVendor(ctx context.Context, data Fields) (Vendor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Vendor{}, err
	}

	v, err := ParseVendor(data)
	if err != nil {
		return Vendor{}, err
	}
	u := e.begin()
	if err := stageInsert(u, e.repo.vendors, v); err != nil {
		return Vendor{}, err
	}
	if err := e.commit(ctx, "create vendor", u); err != nil {
		return Vendor{}, err
	}
	return v, nil
}

// UpdateVendor replaces the vendor stored under id. The id cannot change.
func (e *Engine) UpdateVendor(ctx context.Context, id string, data Fields) (Vendor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Vendor{}, err
	}

	id = Normalize(FieldVendorID, id)
	if _, err := e.repo.vendors.Find(id); err != nil {
		return Vendor{}, err
	}
	in, err := withKey(data, FieldVendorID, id)
	if err != nil {
		return Vendor{}, err
	}
	v, err := ParseVendor(in)
	if err != nil {
		return Vendor{}, err
	}
	u := e.begin()
	if err := stageUpdate(u, e.repo.vendors, v); err != nil {
		return Vendor{}, err
	}
	if err := e.commit(ctx, "update vendor", u); err != nil {
		return Vendor{}, err
	}
	return v, nil
}

// DeleteVendor removes a vendor, with the same confirmation rule as
// DeleteProduct.
func (e *Engine) DeleteVendor(ctx context.Context, id string, confirmed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	id = Normalize(FieldVendorID, id)
	if _, err := e.repo.vendors.Find(id); err != nil {
		return err
	}
	if refs := e.repo.SalesReferencing(EntityVendor, id); len(refs) > 0 && !confirmed {
		return &ReferencedRowWarning{Entity: EntityVendor, Key: id, SaleCodes: refs}
	}
	u := e.begin()
	if _, err := stageDelete(u, e.repo.vendors, id); err != nil {
		return err
	}
	return e.commit(ctx, "delete vendor", u)
}

// =============================================================================
// SALES
// =============================================================================

// saleInput is the parsed form of the sale arguments shared by create and
// edit.
type saleInput struct {
	product  Product
	vendorID string
	quantity int
}

func (e *Engine) parseSaleInput(productCode, vendorID, quantity string) (saleInput, error) {
	productCode = Normalize(FieldProductCode, productCode)
	vendorID = Normalize(FieldVendorID, vendorID)
	if productCode == "" {
		return saleInput{}, &ValidationError{Field: FieldProductCode, Reason: "is required"}
	}
	if vendorID == "" {
		return saleInput{}, &ValidationError{Field: FieldVendorID, Reason: "is required"}
	}
	qty, err := CoerceInt(FieldQuantitySold, quantity)
	if err != nil {
		return saleInput{}, err
	}
	if qty <= 0 {
		return saleInput{}, &ValidationError{Field: FieldQuantitySold, Reason: "must be greater than 0"}
	}
	product, err := e.repo.products.Find(productCode)
	if err != nil {
		return saleInput{}, err
	}
	if !e.repo.vendors.Has(vendorID) {
		return saleInput{}, &NotFoundError{Entity: EntityVendor, Key: vendorID}
	}
	return saleInput{product: product, vendorID: vendorID, quantity: qty}, nil
}

// CreateSale records a sale of quantity units of productCode by vendorID
// and takes them out of stock. The sale row and the stock change are
// committed together.
func (e *Engine) CreateSale(ctx context.Context, productCode, vendorID, quantity string) (Sale, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Sale{}, err
	}

	in, err := e.parseSaleInput(productCode, vendorID, quantity)
	if err != nil {
		return Sale{}, err
	}
	if err := e.repo.ValidateStock(in.product.Code, in.quantity); err != nil {
		return Sale{}, err
	}

	sale := Sale{
		Code:        NextSaleCode(e.repo.sales.All()),
		ProductCode: in.product.Code,
		ProductName: in.product.Name,
		VendorID:    in.vendorID,
		Quantity:    in.quantity,
		CreatedAt:   e.stamp(),
	}
	if err := checkRow(sale); err != nil {
		return Sale{}, err
	}
	product := in.product
	product.Quantity -= in.quantity

	u := e.begin()
	if err := stageInsert(u, e.repo.sales, sale); err != nil {
		return Sale{}, err
	}
	if err := stageUpdate(u, e.repo.products, product); err != nil {
		u.rollback()
		return Sale{}, err
	}
	if err := e.commit(ctx, "create sale", u); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// EditSale moves an existing sale to a new product, vendor and quantity.
//
// Stock is checked against a staged view in which the old product already
// has the old quantity back. Only when the whole view is valid are both
// stock changes and the sale update applied, and they are committed as one
// transaction. A rejected edit changes nothing.
func (e *Engine) EditSale(ctx context.Context, saleCode, productCode, vendorID, quantity string) (Sale, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Sale{}, err
	}

	saleCode = Normalize(FieldSaleCode, saleCode)
	current, err := e.repo.sales.Find(saleCode)
	if err != nil {
		return Sale{}, err
	}
	in, err := e.parseSaleInput(productCode, vendorID, quantity)
	if err != nil {
		return Sale{}, err
	}

	// Staged view: what the stock would be once the old sale is undone.
	oldProduct, oldErr := e.repo.products.Find(current.ProductCode)
	oldExists := oldErr == nil
	sameProduct := oldExists && current.ProductCode == in.product.Code

	available := in.product.Quantity
	if sameProduct {
		available += current.Quantity
	}
	if in.quantity > available {
		return Sale{}, &InsufficientStockError{
			ProductCode: in.product.Code,
			Available:   available,
			Requested:   in.quantity,
		}
	}

	updated := current
	updated.ProductCode = in.product.Code
	updated.ProductName = in.product.Name
	updated.VendorID = in.vendorID
	updated.Quantity = in.quantity
	updated.CreatedAt = e.stamp()
	if err := checkRow(updated); err != nil {
		return Sale{}, err
	}

	newProduct := in.product
	newProduct.Quantity = available - in.quantity

	u := e.begin()
	if oldExists && !sameProduct {
		oldProduct.Quantity += current.Quantity
		if err := stageUpdate(u, e.repo.products, oldProduct); err != nil {
			u.rollback()
			return Sale{}, err
		}
	}
	if err := stageUpdate(u, e.repo.products, newProduct); err != nil {
		u.rollback()
		return Sale{}, err
	}
	if err := stageUpdate(u, e.repo.sales, updated); err != nil {
		u.rollback()
		return Sale{}, err
	}
	if err := e.commit(ctx, "edit sale", u); err != nil {
		return Sale{}, err
	}
	return updated, nil
}

// DeleteSale removes a sale and returns its units to stock. If the product
// has since been deleted the sale is an orphan and only the row goes.
func (e *Engine) DeleteSale(ctx context.Context, saleCode string) (Sale, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Sale{}, err
	}

	saleCode = Normalize(FieldSaleCode, saleCode)
	sale, err := e.repo.sales.Find(saleCode)
	if err != nil {
		return Sale{}, err
	}

	u := e.begin()
	if _, err := stageDelete(u, e.repo.sales, saleCode); err != nil {
		return Sale{}, err
	}
	// A restore past MaxQuantity fails the row check in stageUpdate.
	if product, err := e.repo.products.Find(sale.ProductCode); err == nil {
		product.Quantity += sale.Quantity
		if err := stageUpdate(u, e.repo.products, product); err != nil {
			u.rollback()
			return Sale{}, err
		}
	}
	if err := e.commit(ctx, "delete sale", u); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

// unitOfWork collects the changes of one engine operation together with
// the steps that undo them in memory.
type unitOfWork struct {
	changes []Change
	undo    []func()
}

func (e *Engine) begin() *unitOfWork {
	return &unitOfWork{}
}

func (u *unitOfWork) record(c Change, undo func()) {
	u.changes = append(u.changes, c)
	u.undo = append(u.undo, undo)
}

// rollback restores the repository to its state before the first change.
func (u *unitOfWork) rollback() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.changes, u.undo = nil, nil
}

func stageInsert[T Row](u *unitOfWork, t *Table[T], row T) error {
	if err := checkRow(row); err != nil {
		return err
	}
	if err := t.Insert(row); err != nil {
		return err
	}
	key := row.Key()
	u.record(Change{Op: OpInsert, Entity: t.entity, Key: key, Row: row}, func() { t.remove(key) })
	return nil
}

func stageUpdate[T Row](u *unitOfWork, t *Table[T], row T) error {
	if err := checkRow(row); err != nil {
		return err
	}
	key := row.Key()
	prev, err := t.Find(key)
	if err != nil {
		return err
	}
	if err := t.Update(key, row); err != nil {
		return err
	}
	u.record(Change{Op: OpUpdate, Entity: t.entity, Key: key, Row: row}, func() { t.rows[key] = prev })
	return nil
}

func stageDelete[T Row](u *unitOfWork, t *Table[T], key string) (T, error) {
	row, idx, err := t.Delete(key)
	if err != nil {
		return row, err
	}
	u.record(Change{Op: OpDelete, Entity: t.entity, Key: key}, func() { t.insertAt(idx, row) })
	return row, nil
}

// =============================================================================
// COMMIT
// =============================================================================

// commit persists the staged changes. On failure the repository is rolled
// back before the error is returned.
func (e *Engine) commit(ctx context.Context, op string, u *unitOfWork) error {
	err := e.persist(ctx, u)
	if err == nil {
		e.logger.Info("committed", slog.String("op", op), slog.Int("changes", len(u.changes)))
		return nil
	}

	u.rollback()
	e.logger.Warn("commit failed, rolled back", slog.String("op", op), slog.Any("error", err))

	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *Engine) persist(ctx context.Context, u *unitOfWork) error {
	if txStore, ok := e.store.(TxStore); ok {
		return txStore.WithTx(ctx, func(w RowWriter) error {
			for _, c := range u.changes {
				if err := c.Apply(ctx, w); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return e.store.SaveAll(ctx, e.repo.Snapshot())
}

func (e *Engine) stamp() time.Time {
	return e.now().UTC().Truncate(time.Second)
}

// withKey returns a copy of data whose key field is key. A different,
// non-empty key in data is rejected: primary keys are immutable.
func withKey(data Fields, field Field, key string) (Fields, error) {
	out := make(Fields, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	if given := Normalize(field, out[field]); given != "" && given != key {
		return nil, &ValidationError{Field: field, Reason: "primary key cannot change"}
	}
	out[field] = key
	return out, nil
}
