/*
handlers.go - HTTP API handlers for the stock and sales ledger

PURPOSE:
  Exposes the inventory engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every business rule to the engine.

ENDPOINTS:
  Snapshot:
    GET    /api/snapshot                 Products, sales and vendors

  Products:
    GET    /api/products                 List products
    POST   /api/products                 Create product
    GET    /api/products/low-stock       Products below the threshold
    PUT    /api/products/{code}          Update product
    DELETE /api/products/{code}?confirm  Delete product

  Vendors:
    GET    /api/vendors                  List vendors
    POST   /api/vendors                  Create vendor
    PUT    /api/vendors/{id}             Update vendor
    DELETE /api/vendors/{id}?confirm     Delete vendor

  Sales:
    GET    /api/sales                    List sales
    POST   /api/sales                    Create sale (takes stock)
    GET    /api/sales/next-code          Preview the next sale code
    PUT    /api/sales/{code}             Edit sale (reconciles stock)
    DELETE /api/sales/{code}             Delete sale (returns stock)

REQUEST FLOW:
  1. Decode JSON body
  2. Call the engine (validation happens there)
  3. Serialize response
  4. Map engine errors to status codes

ERROR HANDLING:
  - 400: Validation errors, malformed body
  - 404: Product / vendor / sale not found
  - 409: Duplicate key, or delete of a referenced row without confirm=true
  - 422: Insufficient stock
  - 500: Persistence failure (state already rolled back)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *inventory.Engine
	Logger *slog.Logger
}

// NewHandler creates a new handler around engine.
func NewHandler(engine *inventory.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{Engine: engine, Logger: logger}
}

// GetSnapshot returns all three collections.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.Engine.Snapshot()
	writeJSON(w, http.StatusOK, SnapshotResponse{
		Products: toProductDTOs(snap.Products),
		Sales:    nonNil(snap.Sales),
		Vendors:  nonNil(snap.Vendors),
	})
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toProductDTOs(h.Engine.Snapshot().Products))
}

func (h *Handler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toProductDTOs(h.Engine.LowStock()))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Engine.CreateProduct(r.Context(), req.Fields())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ProductDTO{Product: p, LowStock: inventory.IsLowStock(p)})
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Engine.UpdateProduct(r.Context(), chi.URLParam(r, "code"), req.Fields())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductDTO{Product: p, LowStock: inventory.IsLowStock(p)})
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	confirmed, ok := confirmParam(w, r)
	if !ok {
		return
	}
	if err := h.Engine.DeleteProduct(r.Context(), chi.URLParam(r, "code"), confirmed); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// VENDOR HANDLERS
// =============================================================================

func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.Engine.Snapshot().Vendors))
}

func (h *Handler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req VendorRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.Engine.CreateVendor(r.Context(), req.Fields())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) UpdateVendor(w http.ResponseWriter, r *http.Request) {
	var req VendorRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.Engine.UpdateVendor(r.Context(), chi.URLParam(r, "id"), req.Fields())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	confirmed, ok := confirmParam(w, r)
	if !ok {
		return
	}
	if err := h.Engine.DeleteVendor(r.Context(), chi.URLParam(r, "id"), confirmed); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.Engine.Snapshot().Sales))
}

func (h *Handler) NextSaleCode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NextCodeResponse{SaleCode: h.Engine.NextSaleCode()})
}

func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if !decode(w, r, &req) {
		return
	}
	sale, err := h.Engine.CreateSale(r.Context(),
		string(req.ProductCode), string(req.VendorID), string(req.QuantitySold))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (h *Handler) EditSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if !decode(w, r, &req) {
		return
	}
	sale, err := h.Engine.EditSale(r.Context(), chi.URLParam(r, "code"),
		string(req.ProductCode), string(req.VendorID), string(req.QuantitySold))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Engine.DeleteSale(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func confirmParam(w http.ResponseWriter, r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("confirm")
	if raw == "" {
		return false, true
	}
	confirmed, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid confirm parameter", err)
		return false, false
	}
	return confirmed, true
}

// writeEngineError maps engine errors to HTTP responses.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *inventory.ValidationError
		notFoundErr   *inventory.NotFoundError
		duplicateErr  *inventory.DuplicateKeyError
		stockErr      *inventory.InsufficientStockError
		referencedErr *inventory.ReferencedRowWarning
	)
	switch {
	case errors.Is(err, inventory.ErrPersistence):
		h.Logger.Error("persistence failure",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to save changes", err)
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Details: err.Error(),
			Field:   string(validationErr.Field),
		})
	case errors.As(err, &referencedErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:             "Row is referenced by sales",
			Details:           err.Error(),
			NeedsConfirmation: true,
			SaleCodes:         referencedErr.SaleCodes,
		})
	case errors.As(err, &stockErr):
		available := stockErr.Available
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:     "Insufficient stock",
			Details:   err.Error(),
			Available: &available,
		})
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.As(err, &duplicateErr):
		writeError(w, http.StatusConflict, "Already exists", err)
	default:
		h.Logger.Error("unexpected engine error", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
