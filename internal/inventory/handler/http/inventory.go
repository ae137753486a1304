package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/inventory/domain"
	"github.com/utafrali/storefront/internal/inventory/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// InventoryHandler handles HTTP requests for inventory endpoints.
type InventoryHandler struct {
	service *service.InventoryService
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory HTTP handler.
func NewInventoryHandler(svc *service.InventoryService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// StockInRequest is the JSON request body for recording a purchase receipt.
type StockInRequest struct {
	ProductID     string `json:"product_id" validate:"required,uuid"`
	VariantID     string `json:"variant_id" validate:"omitempty,uuid"`
	Qty           int    `json:"qty" validate:"required,gt=0"`
	PurchasePrice int64  `json:"purchase_price" validate:"gte=0"`
	BatchNumber   string `json:"batch_number" validate:"omitempty,max=100"`
	Supplier      string `json:"supplier" validate:"omitempty,max=255"`
	Note          string `json:"note" validate:"omitempty,max=500"`
}

// StockOutRequest is the JSON request body for a manual stock removal.
type StockOutRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id" validate:"omitempty,uuid"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
	Note      string `json:"note" validate:"omitempty,max=500"`
}

// AdjustStockRequest is the JSON request body for setting an exact stock level.
type AdjustStockRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id" validate:"omitempty,uuid"`
	NewQty    *int   `json:"new_qty" validate:"required,gte=0"`
	Note      string `json:"note" validate:"omitempty,max=500"`
}

// MovementResponse pairs a ledger entry with the stock position it produced.
type MovementResponse struct {
	Entry   *domain.LogEntry  `json:"entry"`
	Product *domain.StockInfo `json:"product,omitempty"`
}

// --- Handlers ---

// StockIn handles POST /api/v1/inventory/stock-in
func (h *InventoryHandler) StockIn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req StockInRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	productID, variantID, ok := parseTarget(w, req.ProductID, req.VariantID)
	if !ok {
		return
	}

	entry, err := h.service.StockIn(r.Context(), service.StockInInput{
		ProductID:     productID,
		VariantID:     variantID,
		Qty:           req.Qty,
		PurchasePrice: req.PurchasePrice,
		BatchNumber:   req.BatchNumber,
		Supplier:      req.Supplier,
		Note:          req.Note,
		ActorID:       actorID(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteDataMessage(w, http.StatusCreated, "stock received", h.movementResponse(r, entry))
}

// StockOut handles POST /api/v1/inventory/stock-out
func (h *InventoryHandler) StockOut(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req StockOutRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	productID, variantID, ok := parseTarget(w, req.ProductID, req.VariantID)
	if !ok {
		return
	}

	entry, err := h.service.StockOut(r.Context(), service.StockOutInput{
		ProductID: productID,
		VariantID: variantID,
		Qty:       req.Qty,
		Note:      req.Note,
		ActorID:   actorID(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteDataMessage(w, http.StatusCreated, "stock removed", h.movementResponse(r, entry))
}

// AdjustStock handles POST /api/v1/inventory/adjust
func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AdjustStockRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	productID, variantID, ok := parseTarget(w, req.ProductID, req.VariantID)
	if !ok {
		return
	}

	entry, err := h.service.AdjustStock(r.Context(), service.AdjustInput{
		ProductID: productID,
		VariantID: variantID,
		NewQty:    *req.NewQty,
		Note:      req.Note,
		ActorID:   actorID(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteDataMessage(w, http.StatusCreated, "stock adjusted", h.movementResponse(r, entry))
}

// GetStockInfo handles GET /api/v1/inventory/{productId}
// An optional variant_id query parameter targets a specific variant.
func (h *InventoryHandler) GetStockInfo(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var variantID *uuid.UUID
	if raw := r.URL.Query().Get("variant_id"); raw != "" {
		id, ok := httputil.ParseUUID(w, raw)
		if !ok {
			return
		}
		variantID = &id
	}

	info, err := h.service.GetStockInfo(r.Context(), productID, variantID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, info)
}

// ListLogs handles GET /api/v1/inventory/logs
// Supported filters: product_id, type, from, to (RFC 3339), plus page/limit.
func (h *InventoryHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	var filter domain.LogFilter

	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, ok := httputil.ParseUUID(w, raw)
		if !ok {
			return
		}
		filter.ProductID = &id
	}
	filter.Type = r.URL.Query().Get("type")

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "invalid from timestamp, expected RFC 3339",
			})
			return
		}
		filter.From = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "invalid to timestamp, expected RFC 3339",
			})
			return
		}
		filter.To = &t
	}

	result, err := h.service.Logs(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// ListProductLogs handles GET /api/v1/inventory/logs/{productId}
// Paginated movement history for a single product, newest first.
func (h *InventoryHandler) ListProductLogs(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	filter := domain.LogFilter{ProductID: &productID}
	result, err := h.service.Logs(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// Summary handles GET /api/v1/inventory/summary
func (h *InventoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, summary)
}

// --- helpers ---

// movementResponse re-reads the stock position touched by a movement so the
// response carries the updated product summary. The movement has already
// committed, so a failed lookup only drops the snapshot from the response.
func (h *InventoryHandler) movementResponse(r *http.Request, entry *domain.LogEntry) MovementResponse {
	info, err := h.service.GetStockInfo(r.Context(), entry.ProductID, entry.VariantID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "stock info lookup after movement failed",
			slog.String("product_id", entry.ProductID.String()),
			slog.String("error", err.Error()),
		)
		return MovementResponse{Entry: entry}
	}
	return MovementResponse{Entry: entry, Product: info}
}

// parseTarget converts the product/variant ID pair from a request body. The
// variant is optional; an empty string means the movement targets the product.
func parseTarget(w http.ResponseWriter, product, variant string) (uuid.UUID, *uuid.UUID, bool) {
	productID, ok := httputil.ParseUUID(w, product)
	if !ok {
		return uuid.Nil, nil, false
	}
	if variant == "" {
		return productID, nil, true
	}
	variantID, ok := httputil.ParseUUID(w, variant)
	if !ok {
		return uuid.Nil, nil, false
	}
	return productID, &variantID, true
}

// actorID resolves the authenticated user performing the movement. The auth
// middleware guarantees a user ID is present on these routes.
func actorID(r *http.Request) uuid.UUID {
	id, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil
	}
	return id
}
