package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/catalog/repository"
	"github.com/utafrali/storefront/internal/catalog/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// VariantRequest is one variant in a create or update request body.
type VariantRequest struct {
	ID              string            `json:"id" validate:"omitempty,uuid"`
	Name            string            `json:"name" validate:"required,max=255"`
	SKU             string            `json:"sku" validate:"omitempty,max=100"`
	Attributes      map[string]string `json:"attributes"`
	AdditionalPrice int64             `json:"additional_price" validate:"gte=0"`
	IsActive        *bool             `json:"is_active"`
}

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name              string            `json:"name" validate:"required,max=255"`
	SKU               string            `json:"sku" validate:"omitempty,max=100"`
	Description       string            `json:"description" validate:"omitempty,max=5000"`
	ShortDescription  string            `json:"short_description" validate:"omitempty,max=500"`
	CategoryID        string            `json:"category_id" validate:"omitempty,uuid"`
	BasePrice         int64             `json:"base_price" validate:"gte=0"`
	SellingPrice      int64             `json:"selling_price" validate:"required,gt=0"`
	LowStockThreshold int               `json:"low_stock_threshold" validate:"gte=0"`
	Attributes        map[string]string `json:"attributes"`
	Tags              []string          `json:"tags" validate:"omitempty,dive,max=50"`
	Images            []string          `json:"images" validate:"omitempty,dive,max=2048"`
	IsFeatured        bool              `json:"is_featured"`
	Variants          []VariantRequest  `json:"variants" validate:"omitempty,dive"`
}

// UpdateProductRequest is the JSON request body for updating a product.
// Omitted fields are left untouched; variants, when present, replace
// the full variant list.
type UpdateProductRequest struct {
	Name              *string           `json:"name" validate:"omitempty,max=255"`
	Description       *string           `json:"description" validate:"omitempty,max=5000"`
	ShortDescription  *string           `json:"short_description" validate:"omitempty,max=500"`
	CategoryID        *string           `json:"category_id" validate:"omitempty,uuid"`
	BasePrice         *int64            `json:"base_price" validate:"omitempty,gte=0"`
	SellingPrice      *int64            `json:"selling_price" validate:"omitempty,gt=0"`
	LowStockThreshold *int              `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	Attributes        map[string]string `json:"attributes"`
	Tags              []string          `json:"tags" validate:"omitempty,dive,max=50"`
	Images            []string          `json:"images" validate:"omitempty,dive,max=2048"`
	IsActive          *bool             `json:"is_active"`
	IsFeatured        *bool             `json:"is_featured"`
	Variants          []VariantRequest  `json:"variants" validate:"omitempty,dive"`
}

// --- Handlers ---

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		id, ok := httputil.ParseUUID(w, req.CategoryID)
		if !ok {
			return
		}
		categoryID = &id
	}

	variants, ok := toVariantInputs(w, req.Variants)
	if !ok {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), &service.CreateProductInput{
		Name:              req.Name,
		SKU:               req.SKU,
		Description:       req.Description,
		ShortDescription:  req.ShortDescription,
		CategoryID:        categoryID,
		BasePrice:         req.BasePrice,
		SellingPrice:      req.SellingPrice,
		LowStockThreshold: req.LowStockThreshold,
		Attributes:        req.Attributes,
		Tags:              req.Tags,
		Images:            req.Images,
		IsFeatured:        req.IsFeatured,
		Variants:          variants,
		ActorID:           actorID(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteDataMessage(w, http.StatusCreated, "product created", product)
}

// Get handles GET /api/v1/products/{idOrSlug}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}

// List handles GET /api/v1/products
// Supported filters: category_id, search, min_price, max_price, plus page/limit.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.ProductFilter{
		Search:     r.URL.Query().Get("search"),
		ActiveOnly: true,
	}

	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, ok := httputil.ParseUUID(w, raw)
		if !ok {
			return
		}
		filter.CategoryID = &id
	}
	var ok bool
	if filter.MinPrice, ok = parsePriceParam(w, r, "min_price"); !ok {
		return
	}
	if filter.MaxPrice, ok = parsePriceParam(w, r, "max_price"); !ok {
		return
	}

	result, err := h.service.ListProducts(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// Featured handles GET /api/v1/products/featured
func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	products, err := h.service.FeaturedProducts(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, products)
}

// LowStock handles GET /api/v1/products/low-stock
func (h *ProductHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.LowStockProducts(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// Update handles PUT /api/v1/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.UpdateProductInput{
		Name:              req.Name,
		Description:       req.Description,
		ShortDescription:  req.ShortDescription,
		BasePrice:         req.BasePrice,
		SellingPrice:      req.SellingPrice,
		LowStockThreshold: req.LowStockThreshold,
		Attributes:        req.Attributes,
		Tags:              req.Tags,
		Images:            req.Images,
		IsActive:          req.IsActive,
		IsFeatured:        req.IsFeatured,
		ActorID:           actorID(r),
	}
	if req.CategoryID != nil {
		categoryID, ok := httputil.ParseUUID(w, *req.CategoryID)
		if !ok {
			return
		}
		input.CategoryID = &categoryID
	}
	if req.Variants != nil {
		variants, ok := toVariantInputs(w, req.Variants)
		if !ok {
			return
		}
		input.Variants = variants
	}

	product, err := h.service.UpdateProduct(r.Context(), id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteDataMessage(w, http.StatusOK, "product updated", product)
}

// Delete handles DELETE /api/v1/products/{id}
// Products are deactivated, never removed, so order history stays intact.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id, actorID(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "product deleted")
}

// --- helpers ---

func toVariantInputs(w http.ResponseWriter, reqs []VariantRequest) ([]service.VariantInput, bool) {
	variants := make([]service.VariantInput, 0, len(reqs))
	for _, v := range reqs {
		input := service.VariantInput{
			Name:            v.Name,
			SKU:             v.SKU,
			Attributes:      v.Attributes,
			AdditionalPrice: v.AdditionalPrice,
			IsActive:        true,
		}
		if v.ID != "" {
			id, ok := httputil.ParseUUID(w, v.ID)
			if !ok {
				return nil, false
			}
			input.ID = &id
		}
		if v.IsActive != nil {
			input.IsActive = *v.IsActive
		}
		variants = append(variants, input)
	}
	return variants, true
}

func parsePriceParam(w http.ResponseWriter, r *http.Request, name string) (*int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Success: false,
			Message: "invalid " + name + " value",
		})
		return nil, false
	}
	return &v, true
}

// actorID resolves the authenticated user making the change. The auth
// middleware guarantees a user ID is present on mutating routes.
func actorID(r *http.Request) uuid.UUID {
	id, _ := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	return id
}
