/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request bodies carry
  loosely typed form values; the engine parses them, so a client may send
  "12", 12 or "12,50" and get the same validation as the desktop form.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

SEE ALSO:
  - handlers.go: Uses these types
  - inventory/validation.go: Field names and parsing
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
)

// FormValue is a form field sent as a JSON string, number or null.
type FormValue string

func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("form value must be a string or number: %w", err)
		}
		*v = FormValue(n.String())
	}
	return nil
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ProductRequest is the body of POST /api/products and PUT /api/products/{code}.
type ProductRequest struct {
	Code          FormValue `json:"code"`
	Name          FormValue `json:"name"`
	Category      FormValue `json:"category"`
	Quantity      FormValue `json:"quantity"`
	Volume        FormValue `json:"volume"`
	PurchasePrice FormValue `json:"purchase_price"`
	SalePrice     FormValue `json:"sale_price"`
	MarketPrice   FormValue `json:"market_price"`
}

func (r ProductRequest) Fields() inventory.Fields {
	return inventory.Fields{
		inventory.FieldCode:          string(r.Code),
		inventory.FieldName:          string(r.Name),
		inventory.FieldCategory:      string(r.Category),
		inventory.FieldQuantity:      string(r.Quantity),
		inventory.FieldVolume:        string(r.Volume),
		inventory.FieldPurchasePrice: string(r.PurchasePrice),
		inventory.FieldSalePrice:     string(r.SalePrice),
		inventory.FieldMarketPrice:   string(r.MarketPrice),
	}
}

// VendorRequest is the body of POST /api/vendors and PUT /api/vendors/{id}.
type VendorRequest struct {
	VendorID FormValue `json:"vendor_id"`
	Name     FormValue `json:"name"`
	Phone    FormValue `json:"phone"`
	Email    FormValue `json:"email"`
}

func (r VendorRequest) Fields() inventory.Fields {
	return inventory.Fields{
		inventory.FieldVendorID: string(r.VendorID),
		inventory.FieldName:     string(r.Name),
		inventory.FieldPhone:    string(r.Phone),
		inventory.FieldEmail:    string(r.Email),
	}
}

// SaleRequest is the body of POST /api/sales and PUT /api/sales/{code}.
// The sale code is always assigned by the server.
type SaleRequest struct {
	ProductCode  FormValue `json:"product_code"`
	VendorID     FormValue `json:"vendor_id"`
	QuantitySold FormValue `json:"quantity_sold"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	inventory.Product
	LowStock bool `json:"low_stock"`
}

func toProductDTOs(products []inventory.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = ProductDTO{Product: p, LowStock: inventory.IsLowStock(p)}
	}
	return dtos
}

// SnapshotResponse is the full dataset.
type SnapshotResponse struct {
	Products []ProductDTO       `json:"products"`
	Sales    []inventory.Sale   `json:"sales"`
	Vendors  []inventory.Vendor `json:"vendors"`
}

// NextCodeResponse previews the next sale code.
type NextCodeResponse struct {
	SaleCode string `json:"sale_code"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`

	// Stock shortage
	Available *int `json:"available,omitempty"`

	// Unconfirmed delete of a referenced row
	NeedsConfirmation bool     `json:"needs_confirmation,omitempty"`
	SaleCodes         []string `json:"sale_codes,omitempty"`
}
