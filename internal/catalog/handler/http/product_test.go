package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/catalog/domain"
	"github.com/utafrali/storefront/internal/catalog/repository"
	"github.com/utafrali/storefront/internal/catalog/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter, p pagination.Params) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter, p)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) ListFeatured(ctx context.Context, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListLowStock(ctx context.Context, p pagination.Params) ([]domain.Product, int, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) Deactivate(ctx context.Context, id, actor uuid.UUID) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *mockProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	args := m.Called(ctx, categoryID)
	return args.Int(0), args.Error(1)
}

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCategoryRepository) ListAll(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) ListTree(ctx context.Context) ([]*domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID, p pagination.Params) ([]domain.Review, int, error) {
	args := m.Called(ctx, productID, p)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ============================================================================
// Helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	products   *mockProductRepository
	categories *mockCategoryRepository
	reviews    *mockReviewRepository
	router     *chi.Mux
}

// setupEnv creates handlers over mock repositories with a chi router
// matching the production route layout.
func setupEnv() *testEnv {
	logger := testLogger()
	products := new(mockProductRepository)
	categories := new(mockCategoryRepository)
	reviews := new(mockReviewRepository)

	productHandler := NewProductHandler(service.NewProductService(products, categories, nil, logger), logger)
	categoryHandler := NewCategoryHandler(service.NewCategoryService(categories, products, nil, logger), logger)
	reviewHandler := NewReviewHandler(service.NewReviewService(reviews, products, nil, logger), logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/featured", productHandler.Featured)
			r.Get("/low-stock", productHandler.LowStock)
			r.Get("/{idOrSlug}", productHandler.Get)
			r.Put("/{id}", productHandler.Update)
			r.Delete("/{id}", productHandler.Delete)
			r.Get("/{productId}/reviews", reviewHandler.List)
			r.Post("/{productId}/reviews", reviewHandler.Create)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.List)
			r.Post("/", categoryHandler.Create)
			r.Get("/tree", categoryHandler.Tree)
			r.Get("/{idOrSlug}", categoryHandler.Get)
			r.Put("/{id}", categoryHandler.Update)
			r.Delete("/{id}", categoryHandler.Delete)
		})
		r.Delete("/reviews/{id}", reviewHandler.Delete)
	})

	return &testEnv{
		products:   products,
		categories: categories,
		reviews:    reviews,
		router:     r,
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

func jsonRequest(method, target string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ============================================================================
// POST /api/v1/products
// ============================================================================

func TestCreateProductHandler_Created(t *testing.T) {
	env := setupEnv()

	env.products.On("SlugExists", mock.Anything, "walnut-desk").Return(false, nil)
	env.products.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(nil)

	req := jsonRequest(http.MethodPost, "/api/v1/products", CreateProductRequest{
		Name:         "Walnut Desk",
		SKU:          "FUR-00001-AAAA",
		SellingPrice: 45000,
	})
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "product created", resp.Message)
}

func TestCreateProductHandler_MissingName(t *testing.T) {
	env := setupEnv()

	req := jsonRequest(http.MethodPost, "/api/v1/products", CreateProductRequest{
		SellingPrice: 45000,
	})
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Fields, "Name")
	env.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateProductHandler_DuplicateSKU(t *testing.T) {
	env := setupEnv()

	env.products.On("SlugExists", mock.Anything, mock.Anything).Return(false, nil)
	env.products.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).
		Return(apperrors.AlreadyExists("product", "slug or sku", "FUR-00001-AAAA"))

	req := jsonRequest(http.MethodPost, "/api/v1/products", CreateProductRequest{
		Name:         "Walnut Desk",
		SKU:          "FUR-00001-AAAA",
		SellingPrice: 45000,
	})
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ============================================================================
// GET /api/v1/products/{idOrSlug}
// ============================================================================

func TestGetProductHandler_BySlug(t *testing.T) {
	env := setupEnv()

	env.products.On("GetBySlug", mock.Anything, "walnut-desk").
		Return(&domain.Product{ID: uuid.New(), Slug: "walnut-desk", Name: "Walnut Desk"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/walnut-desk", nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestGetProductHandler_NotFound(t *testing.T) {
	env := setupEnv()

	env.products.On("GetBySlug", mock.Anything, "missing").Return(nil, apperrors.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// GET /api/v1/products
// ============================================================================

func TestListProductsHandler_Filters(t *testing.T) {
	env := setupEnv()

	categoryID := uuid.New()
	env.products.On("List", mock.Anything, mock.MatchedBy(func(f repository.ProductFilter) bool {
		return f.ActiveOnly && f.Search == "desk" &&
			f.CategoryID != nil && *f.CategoryID == categoryID &&
			f.MinPrice != nil && *f.MinPrice == int64(1000) &&
			f.MaxPrice == nil
	}), pagination.Params{Page: 2, Limit: 10, Offset: 10}).
		Return([]domain.Product{{ID: uuid.New(), Name: "Walnut Desk"}}, 11, nil)

	target := "/api/v1/products?search=desk&category_id=" + categoryID.String() +
		"&min_price=1000&page=2&limit=10"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListProductsHandler_BadPrice(t *testing.T) {
	env := setupEnv()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?min_price=cheap", nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.products.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// PUT /api/v1/products/{id}
// ============================================================================

func TestUpdateProductHandler_OK(t *testing.T) {
	env := setupEnv()

	id := uuid.New()
	env.products.On("GetByID", mock.Anything, id).
		Return(&domain.Product{ID: id, Name: "Walnut Desk", Slug: "walnut-desk"}, nil)
	env.products.On("Update", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(nil)

	price := int64(52000)
	req := jsonRequest(http.MethodPut, "/api/v1/products/"+id.String(), UpdateProductRequest{
		SellingPrice: &price,
	})
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "product updated", resp.Message)
}

func TestUpdateProductHandler_InvalidID(t *testing.T) {
	env := setupEnv()

	req := jsonRequest(http.MethodPut, "/api/v1/products/not-a-uuid", UpdateProductRequest{})
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============================================================================
// DELETE /api/v1/products/{id}
// ============================================================================

func TestDeleteProductHandler_OK(t *testing.T) {
	env := setupEnv()

	id := uuid.New()
	env.products.On("GetByID", mock.Anything, id).
		Return(&domain.Product{ID: id, Slug: "walnut-desk"}, nil)
	env.products.On("Deactivate", mock.Anything, id, mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/"+id.String(), nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "product deleted", resp.Message)
}
