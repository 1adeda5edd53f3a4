package filestore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/JhonneBoy/sistema-estoque-vendas/auth"
	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
)

// Document is the on-disk layout: one section per collection.
type Document struct {
	Products    []ProductRecord   `yaml:"products"`
	Sales       []SaleRecord      `yaml:"sales"`
	Vendors     []VendorRecord    `yaml:"vendors"`
	Credentials []auth.Credential `yaml:"credentials,omitempty"`
}

// ProductRecord is a product row as written to the document. Prices are
// kept as decimal strings so they survive a round trip exactly.
type ProductRecord struct {
	Code          string `yaml:"code"`
	Name          string `yaml:"name"`
	Category      string `yaml:"category"`
	Quantity      int    `yaml:"quantity"`
	Volume        string `yaml:"volume"`
	PurchasePrice string `yaml:"purchase_price"`
	SalePrice     string `yaml:"sale_price"`
	MarketPrice   string `yaml:"market_price"`
}

type SaleRecord struct {
	SaleCode     string `yaml:"sale_code"`
	ProductCode  string `yaml:"product_code"`
	ProductName  string `yaml:"product_name"`
	VendorID     string `yaml:"vendor_id"`
	QuantitySold int    `yaml:"quantity_sold"`
	Timestamp    string `yaml:"timestamp"`
}

type VendorRecord struct {
	VendorID string `yaml:"vendor_id"`
	Name     string `yaml:"name"`
	Phone    string `yaml:"phone"`
	Email    string `yaml:"email"`
}

// Parse parses YAML data into a Document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}
	return &doc, nil
}

// Marshal serializes a Document to YAML.
func Marshal(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// =============================================================================
// MAPPING - records <-> typed rows
// =============================================================================

// Snapshot converts the document sections into typed rows.
func (d *Document) Snapshot() (inventory.Snapshot, error) {
	var snap inventory.Snapshot
	for _, r := range d.Products {
		p := inventory.Product{
			Code:     r.Code,
			Name:     r.Name,
			Category: r.Category,
			Quantity: r.Quantity,
			Volume:   r.Volume,
		}
		var err error
		if p.PurchasePrice, err = parsePrice(r.PurchasePrice); err != nil {
			return snap, fmt.Errorf("product %q purchase_price: %w", r.Code, err)
		}
		if p.SalePrice, err = parsePrice(r.SalePrice); err != nil {
			return snap, fmt.Errorf("product %q sale_price: %w", r.Code, err)
		}
		if p.MarketPrice, err = parsePrice(r.MarketPrice); err != nil {
			return snap, fmt.Errorf("product %q market_price: %w", r.Code, err)
		}
		snap.Products = append(snap.Products, p)
	}
	for _, r := range d.Sales {
		s := inventory.Sale{
			Code:        r.SaleCode,
			ProductCode: r.ProductCode,
			ProductName: r.ProductName,
			VendorID:    r.VendorID,
			Quantity:    r.QuantitySold,
		}
		if r.Timestamp != "" {
			t, err := time.Parse(time.RFC3339Nano, r.Timestamp)
			if err != nil {
				return snap, fmt.Errorf("sale %q timestamp: %w", r.SaleCode, err)
			}
			s.CreatedAt = t.UTC()
		}
		snap.Sales = append(snap.Sales, s)
	}
	for _, r := range d.Vendors {
		snap.Vendors = append(snap.Vendors, inventory.Vendor{
			ID:    r.VendorID,
			Name:  r.Name,
			Phone: r.Phone,
			Email: r.Email,
		})
	}
	return snap, nil
}

// SetSnapshot replaces the three data sections. Credentials are untouched.
func (d *Document) SetSnapshot(snap inventory.Snapshot) {
	d.Products = make([]ProductRecord, 0, len(snap.Products))
	for _, p := range snap.Products {
		d.Products = append(d.Products, ProductRecord{
			Code:          p.Code,
			Name:          p.Name,
			Category:      p.Category,
			Quantity:      p.Quantity,
			Volume:        p.Volume,
			PurchasePrice: p.PurchasePrice.String(),
			SalePrice:     p.SalePrice.String(),
			MarketPrice:   p.MarketPrice.String(),
		})
	}
	d.Sales = make([]SaleRecord, 0, len(snap.Sales))
	for _, s := range snap.Sales {
		d.Sales = append(d.Sales, SaleRecord{
			SaleCode:     s.Code,
			ProductCode:  s.ProductCode,
			ProductName:  s.ProductName,
			VendorID:     s.VendorID,
			QuantitySold: s.Quantity,
			Timestamp:    s.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	d.Vendors = make([]VendorRecord, 0, len(snap.Vendors))
	for _, v := range snap.Vendors {
		d.Vendors = append(d.Vendors, VendorRecord{
			VendorID: v.ID,
			Name:     v.Name,
			Phone:    v.Phone,
			Email:    v.Email,
		})
	}
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
