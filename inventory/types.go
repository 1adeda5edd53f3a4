/*
Package inventory provides the stock and sales ledger engine.

PURPOSE:
  This package owns the three business entities of the tool (Products,
  Sales, Vendors) and the rules that keep them consistent. Presentation
  layers (HTTP, desktop, CLI) call the Engine; the Engine validates,
  mutates its in-memory Repository and commits through a Store.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product, Sale, Vendor: strongly typed rows
  - Row: common interface (entity + primary key) used at the storage boundary
  - Snapshot: the full dataset exchanged with storage and presentation

DESIGN PRINCIPLES:
  1. Typed rows: loosely typed form input is parsed once (validation.go),
     loosely typed storage records are mapped once (store packages)
  2. Precision: prices use decimal.Decimal, never float64
  3. Stock is engine-owned: only direct product edits and sales move it

SEE ALSO:
  - repository.go: ordered in-memory tables
  - engine.go: create/update/delete operations and stock reconciliation
  - store.go: persistence contract
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTITIES
// =============================================================================

// Entity names one of the managed collections.
type Entity string

const (
	EntityProduct Entity = "products"
	EntitySale    Entity = "sales"
	EntityVendor  Entity = "vendors"
)

// Row is implemented by every entity record.
type Row interface {
	Entity() Entity
	Key() string
}

// Product is an item held in stock.
type Product struct {
	Code          string          `json:"code" field:"code" validate:"required"`
	Name          string          `json:"name" field:"name" validate:"required"`
	Category      string          `json:"category" field:"category"`
	Quantity      int             `json:"quantity" field:"quantity" validate:"gte=0,lte=1000000000"`
	Volume        string          `json:"volume" field:"volume"`
	PurchasePrice decimal.Decimal `json:"purchase_price" field:"purchase_price" validate:"gte=0"`
	SalePrice     decimal.Decimal `json:"sale_price" field:"sale_price" validate:"gte=0"`
	MarketPrice   decimal.Decimal `json:"market_price" field:"market_price" validate:"gte=0"`
}

func (p Product) Entity() Entity { return EntityProduct }
func (p Product) Key() string    { return p.Code }

// Sale records units of a product sold by a vendor.
//
// ProductName is copied from the product when the sale is created or
// edited. It is historical and is not kept in sync with later renames.
type Sale struct {
	Code        string    `json:"sale_code" field:"sale_code" validate:"required"`
	ProductCode string    `json:"product_code" field:"product_code" validate:"required"`
	ProductName string    `json:"product_name" field:"product_name" validate:"required"`
	VendorID    string    `json:"vendor_id" field:"vendor_id"`
	Quantity    int       `json:"quantity_sold" field:"quantity_sold" validate:"gt=0,lte=1000000000"`
	CreatedAt   time.Time `json:"timestamp" field:"timestamp"`
}

func (s Sale) Entity() Entity { return EntitySale }
func (s Sale) Key() string    { return s.Code }

// Vendor is a salesperson.
type Vendor struct {
	ID    string `json:"vendor_id" field:"vendor_id" validate:"required"`
	Name  string `json:"name" field:"name" validate:"required"`
	Phone string `json:"phone" field:"phone"`
	Email string `json:"email" field:"email"`
}

func (v Vendor) Entity() Entity { return EntityVendor }
func (v Vendor) Key() string    { return v.ID }

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a full copy of all three collections, in insertion order.
type Snapshot struct {
	Products []Product `json:"products"`
	Sales    []Sale    `json:"sales"`
	Vendors  []Vendor  `json:"vendors"`
}

// IsEmpty reports whether the snapshot holds no rows at all.
func (s Snapshot) IsEmpty() bool {
	return len(s.Products) == 0 && len(s.Sales) == 0 && len(s.Vendors) == 0
}

// MaxQuantity caps stock and sale quantities so that returning a sale to
// stock can never overflow. Keep it in sync with the lte tags above.
const MaxQuantity = 1_000_000_000

// LowStockThreshold is the quantity below which a product is flagged.
const LowStockThreshold = 5

// IsLowStock reports whether p should be highlighted as running out.
// Purely presentational; it is not a business invariant.
func IsLowStock(p Product) bool {
	return p.Quantity < LowStockThreshold
}
