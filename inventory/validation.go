/*
validation.go - Field normalization, coercion and required-field checks

PURPOSE:
  Turns raw form input (strings typed by a user) into typed rows. This is
  the only place loosely typed input is interpreted; everything after it
  works on Product, Sale and Vendor values.

PIPELINE:
  1. Normalize: trim, uppercase identifiers, canonical phone format
  2. ValidateRequired: first missing required field per entity
  3. Coerce: integers and decimals, empty input means zero
  4. Struct check: validator tags on the typed row (non-negative amounts)

PHONE FORMAT:
  11 digits -> (DD) DDDDD-DDDD
  10 digits -> (DD) DDDD-DDDD
  otherwise the stripped digits are kept as typed (max 11)

SEE ALSO:
  - types.go: validate tags on the row types
  - engine.go: calls ParseProduct / ParseVendor / ValidateStock
*/
package inventory

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// =============================================================================
// FIELDS
// =============================================================================

// Field names an input column. Values match the storage column names.
type Field string

const (
	FieldCode          Field = "code"
	FieldName          Field = "name"
	FieldCategory      Field = "category"
	FieldQuantity      Field = "quantity"
	FieldVolume        Field = "volume"
	FieldPurchasePrice Field = "purchase_price"
	FieldSalePrice     Field = "sale_price"
	FieldMarketPrice   Field = "market_price"

	FieldSaleCode     Field = "sale_code"
	FieldProductCode  Field = "product_code"
	FieldProductName  Field = "product_name"
	FieldVendorID     Field = "vendor_id"
	FieldQuantitySold Field = "quantity_sold"

	FieldPhone Field = "phone"
	FieldEmail Field = "email"
)

// Fields is raw, untyped input keyed by field, as collected from a form.
type Fields map[Field]string

var requiredFields = map[Entity][]Field{
	EntityProduct: {FieldCode, FieldName},
	EntitySale:    {FieldSaleCode, FieldProductCode, FieldProductName},
	EntityVendor:  {FieldVendorID, FieldName},
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize trims raw and applies the canonical form for field.
func Normalize(field Field, raw string) string {
	val := strings.TrimSpace(raw)
	switch field {
	case FieldCode, FieldSaleCode, FieldProductCode, FieldVendorID:
		return strings.ToUpper(val)
	case FieldPhone:
		return formatPhone(val)
	}
	return val
}

func formatPhone(val string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, val)
	if len(digits) > 11 {
		digits = digits[:11]
	}
	switch len(digits) {
	case 11:
		return "(" + digits[:2] + ") " + digits[2:7] + "-" + digits[7:]
	case 10:
		return "(" + digits[:2] + ") " + digits[2:6] + "-" + digits[6:]
	}
	return digits
}

func (f Fields) normalized() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = Normalize(k, v)
	}
	return out
}

// =============================================================================
// COERCION
// =============================================================================

// CoerceInt parses an integer field. Empty input is 0.
func CoerceInt(field Field, raw string) (int, error) {
	val := strings.TrimSpace(raw)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "must be a whole number"}
	}
	return n, nil
}

// CoerceDecimal parses a currency field, accepting "." or "," as the decimal
// separator. Empty input is 0.
func CoerceDecimal(field Field, raw string) (decimal.Decimal, error) {
	val := strings.TrimSpace(raw)
	if val == "" {
		return decimal.Zero, nil
	}
	val = strings.ReplaceAll(val, ",", ".")
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Reason: "must be a number"}
	}
	return d, nil
}

// =============================================================================
// CHECKS
// =============================================================================

// ValidateRequired fails on the first required field of entity that is
// missing or blank in data.
func ValidateRequired(entity Entity, data Fields) error {
	for _, f := range requiredFields[entity] {
		if strings.TrimSpace(data[f]) == "" {
			return &ValidationError{Field: f, Reason: "is required"}
		}
	}
	return nil
}

// ValidateStock checks that productCode exists and holds at least requested
// units.
func (r *Repository) ValidateStock(productCode string, requested int) error {
	p, err := r.products.Find(productCode)
	if err != nil {
		return err
	}
	if requested > p.Quantity {
		return &InsufficientStockError{ProductCode: productCode, Available: p.Quantity, Requested: requested}
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		if name := sf.Tag.Get("field"); name != "" {
			return name
		}
		return sf.Name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// checkRow runs the validate tags of a typed row and reports the first
// failing field.
func checkRow(row Row) error {
	err := validate.Struct(row)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	reason := fe.Tag()
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "gte":
		reason = "must be greater than or equal to " + fe.Param()
	case "gt":
		reason = "must be greater than " + fe.Param()
	case "lte":
		reason = "must be less than or equal to " + fe.Param()
	}
	return &ValidationError{Field: Field(fe.Field()), Reason: reason}
}

// =============================================================================
// PARSERS
// =============================================================================

// ParseProduct builds a Product from raw input.
func ParseProduct(data Fields) (Product, error) {
	in := data.normalized()
	if err := ValidateRequired(EntityProduct, in); err != nil {
		return Product{}, err
	}
	qty, err := CoerceInt(FieldQuantity, in[FieldQuantity])
	if err != nil {
		return Product{}, err
	}
	prices := make(map[Field]decimal.Decimal, 3)
	for _, f := range []Field{FieldPurchasePrice, FieldSalePrice, FieldMarketPrice} {
		d, err := CoerceDecimal(f, in[f])
		if err != nil {
			return Product{}, err
		}
		prices[f] = d
	}
	p := Product{
		Code:          in[FieldCode],
		Name:          in[FieldName],
		Category:      in[FieldCategory],
		Quantity:      qty,
		Volume:        in[FieldVolume],
		PurchasePrice: prices[FieldPurchasePrice],
		SalePrice:     prices[FieldSalePrice],
		MarketPrice:   prices[FieldMarketPrice],
	}
	return p, checkRow(p)
}

// ParseVendor builds a Vendor from raw input.
func ParseVendor(data Fields) (Vendor, error) {
	in := data.normalized()
	if err := ValidateRequired(EntityVendor, in); err != nil {
		return Vendor{}, err
	}
	v := Vendor{
		ID:    in[FieldVendorID],
		Name:  in[FieldName],
		Phone: in[FieldPhone],
		Email: in[FieldEmail],
	}
	return v, checkRow(v)
}
