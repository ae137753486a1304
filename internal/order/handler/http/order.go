package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/order/domain"
	"github.com/utafrali/storefront/internal/order/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// OrderItemRequest is one line in a create-order request body.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id" validate:"omitempty,uuid"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
}

// AddressRequest is the shipping address in a create-order request body.
type AddressRequest struct {
	Line1      string `json:"line1" validate:"required,max=255"`
	Line2      string `json:"line2" validate:"omitempty,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
}

// PaymentRequest describes the intended payment in a create-order request.
type PaymentRequest struct {
	Method string `json:"method" validate:"required,oneof=cod online upi card"`
	TxnID  string `json:"txn_id" validate:"omitempty,max=255"`
}

// CreateOrderRequest is the JSON request body for placing an order.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress AddressRequest     `json:"shipping_address" validate:"required"`
	Payment         *PaymentRequest    `json:"payment" validate:"omitempty"`
	CustomerNote    string             `json:"customer_note" validate:"omitempty,max=1000"`
}

// UpdateStatusRequest is the JSON request body for a staff status change.
type UpdateStatusRequest struct {
	Status       string `json:"status" validate:"required"`
	AdminNote    string `json:"admin_note" validate:"omitempty,max=1000"`
	CancelReason string `json:"cancel_reason" validate:"omitempty,max=500"`
}

// CancelOrderRequest is the JSON request body for a customer cancellation.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// --- Handlers ---

// Create handles POST /api/v1/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, line := range req.Items {
		productID, ok := httputil.ParseUUID(w, line.ProductID)
		if !ok {
			return
		}
		item := service.OrderItemInput{ProductID: productID, Qty: line.Qty}
		if line.VariantID != "" {
			variantID, ok := httputil.ParseUUID(w, line.VariantID)
			if !ok {
				return
			}
			item.VariantID = &variantID
		}
		items = append(items, item)
	}

	input := &service.CreateOrderInput{
		CustomerID: actorID(r),
		Items:      items,
		ShippingAddress: domain.Address{
			Line1:      req.ShippingAddress.Line1,
			Line2:      req.ShippingAddress.Line2,
			City:       req.ShippingAddress.City,
			State:      req.ShippingAddress.State,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
			Phone:      req.ShippingAddress.Phone,
		},
		CustomerNote: req.CustomerNote,
	}
	if req.Payment != nil {
		input.Payment = &service.PaymentInput{
			Method: req.Payment.Method,
			TxnID:  req.Payment.TxnID,
		}
	}

	order, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteDataMessage(w, http.StatusCreated, "order placed", order)
}

// Get handles GET /api/v1/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id, actorID(r), middleware.RoleFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, order)
}

// List handles GET /api/v1/orders
// Staff and admin only; supports a status filter plus page/limit.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("status"), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// ListMine handles GET /api/v1/orders/my-orders
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListMyOrders(r.Context(), actorID(r), r.URL.Query().Get("status"), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// UpdateStatus handles PUT /api/v1/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), id, &service.UpdateStatusInput{
		NewStatus:    req.Status,
		ActorID:      actorID(r),
		AdminNote:    req.AdminNote,
		CancelReason: req.CancelReason,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteDataMessage(w, http.StatusOK, "order status updated", order)
}

// Cancel handles PUT /api/v1/orders/{id}/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CancelOrderRequest
	if r.ContentLength > 0 {
		if err := validator.DecodeAndValidate(r, &req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	}

	order, err := h.service.CancelOrder(r.Context(), id, actorID(r), req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteDataMessage(w, http.StatusOK, "order cancelled", order)
}

// actorID resolves the authenticated user for the request. The auth
// middleware guarantees a user ID is present on these routes.
func actorID(r *http.Request) uuid.UUID {
	id, _ := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	return id
}
