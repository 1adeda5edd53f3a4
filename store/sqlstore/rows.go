package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
)

// table maps one entity to its SQL table. The first column is the primary
// key.
type table struct {
	name    string
	columns []string
	values  func(inventory.Row) ([]any, error)
}

func (t table) key() string { return t.columns[0] }

var productTable = table{
	name: "products",
	columns: []string{
		"code", "name", "category", "quantity", "volume",
		"purchase_price", "sale_price", "market_price",
	},
	values: func(row inventory.Row) ([]any, error) {
		p, ok := row.(inventory.Product)
		if !ok {
			return nil, fmt.Errorf("products: unexpected row %T", row)
		}
		return []any{
			p.Code, p.Name, p.Category, p.Quantity, p.Volume,
			p.PurchasePrice.String(), p.SalePrice.String(), p.MarketPrice.String(),
		}, nil
	},
}

var saleTable = table{
	name: "sales",
	columns: []string{
		"sale_code", "product_code", "product_name", "vendor_id", "quantity_sold", "created_at",
	},
	values: func(row inventory.Row) ([]any, error) {
		s, ok := row.(inventory.Sale)
		if !ok {
			return nil, fmt.Errorf("sales: unexpected row %T", row)
		}
		return []any{
			s.Code, s.ProductCode, s.ProductName, s.VendorID, s.Quantity,
			s.CreatedAt.UTC().Format(time.RFC3339Nano),
		}, nil
	},
}

var vendorTable = table{
	name:    "vendors",
	columns: []string{"vendor_id", "name", "phone", "email"},
	values: func(row inventory.Row) ([]any, error) {
		v, ok := row.(inventory.Vendor)
		if !ok {
			return nil, fmt.Errorf("vendors: unexpected row %T", row)
		}
		return []any{v.ID, v.Name, v.Phone, v.Email}, nil
	},
}

func tableFor(entity inventory.Entity) (table, bool) {
	switch entity {
	case inventory.EntityProduct:
		return productTable, true
	case inventory.EntitySale:
		return saleTable, true
	case inventory.EntityVendor:
		return vendorTable, true
	}
	return table{}, false
}

// =============================================================================
// LOADING
// =============================================================================

func loadRows[T any](ctx context.Context, s *Store, db execer, t table, scan func(*sql.Rows) (T, error)) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(t.columns, ", "), t.name, s.dialect.orderColumn())
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		row, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanProduct(rows *sql.Rows) (inventory.Product, error) {
	var p inventory.Product
	var purchase, sale, market string
	if err := rows.Scan(&p.Code, &p.Name, &p.Category, &p.Quantity, &p.Volume, &purchase, &sale, &market); err != nil {
		return p, err
	}
	var err error
	if p.PurchasePrice, err = parseDecimal(purchase); err != nil {
		return p, err
	}
	if p.SalePrice, err = parseDecimal(sale); err != nil {
		return p, err
	}
	if p.MarketPrice, err = parseDecimal(market); err != nil {
		return p, err
	}
	return p, nil
}

func scanSale(rows *sql.Rows) (inventory.Sale, error) {
	var s inventory.Sale
	var createdAt string
	if err := rows.Scan(&s.Code, &s.ProductCode, &s.ProductName, &s.VendorID, &s.Quantity, &createdAt); err != nil {
		return s, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return s, err
	}
	s.CreatedAt = t
	return s, nil
}

func scanVendor(rows *sql.Rows) (inventory.Vendor, error) {
	var v inventory.Vendor
	err := rows.Scan(&v.ID, &v.Name, &v.Phone, &v.Email)
	return v, err
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseTime accepts RFC 3339 and the "YYYY-MM-DD HH:MM:SS" form SQLite's
// CURRENT_TIMESTAMP produces.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateTime, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
