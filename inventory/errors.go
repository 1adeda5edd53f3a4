/*
errors.go - Error taxonomy for the ledger engine

PURPOSE:
  All error types in one place. Every structured error unwraps to a
  sentinel so callers can branch with errors.Is and still read details
  with errors.As.

ERROR CATEGORIES:
  1. Validation  - missing or malformed field input
  2. NotFound    - referenced product/vendor/sale is absent
  3. DuplicateKey - primary-key collision on insert
  4. InsufficientStock - requested quantity exceeds available stock
  5. ReferencedRow - delete target still referenced, needs confirmation
  6. Persistence - durable store failure (in-memory state already rolled back)

USAGE:
  _, err := engine.CreateSale(ctx, "001", "V001", "12")
  var stockErr *inventory.InsufficientStockError
  if errors.As(err, &stockErr) {
      fmt.Printf("only %d left\n", stockErr.Available)
  }

SEE ALSO:
  - engine.go: produces these errors
  - api/handlers.go: maps them to HTTP status codes
*/
package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation        = errors.New("inventory: validation failed")
	ErrNotFound          = errors.New("inventory: not found")
	ErrDuplicateKey      = errors.New("inventory: duplicate key")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrReferencedRow     = errors.New("inventory: row is referenced by sales")
	ErrPersistence       = errors.New("inventory: persistence failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field  Field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// LoadError reports a stored row that fails validation when the dataset
// is loaded. It unwraps to the underlying ValidationError.
type LoadError struct {
	Entity Entity
	Key    string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s %q: %v", e.Entity, e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NotFoundError reports a missing row.
type NotFoundError struct {
	Entity Entity
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateKeyError reports a primary-key collision.
type DuplicateKeyError struct {
	Entity Entity
	Key    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Key)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// InsufficientStockError provides details about a stock shortage.
type InsufficientStockError struct {
	ProductCode string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: available %d, requested %d",
		e.ProductCode, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ReferencedRowWarning is returned by an unconfirmed delete of a product or
// vendor that sales still point to. Repeat the call with confirmed=true to
// delete anyway; the sales become orphans.
type ReferencedRowWarning struct {
	Entity    Entity
	Key       string
	SaleCodes []string
}

func (e *ReferencedRowWarning) Error() string {
	return fmt.Sprintf("%s %q is referenced by %d sale(s): %s",
		e.Entity, e.Key, len(e.SaleCodes), strings.Join(e.SaleCodes, ", "))
}

func (e *ReferencedRowWarning) Unwrap() error { return ErrReferencedRow }

// PersistenceError wraps a durable-store failure. When it is returned by the
// engine, in-memory state has already been restored.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrReferencedRow)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
