package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	catalogdomain "github.com/utafrali/storefront/internal/catalog/domain"
	catalogrepo "github.com/utafrali/storefront/internal/catalog/repository"
	"github.com/utafrali/storefront/internal/user/auth"
	"github.com/utafrali/storefront/internal/user/domain"
	"github.com/utafrali/storefront/internal/user/event"
	"github.com/utafrali/storefront/internal/user/repository"
	"github.com/utafrali/storefront/internal/user/service"
	"github.com/utafrali/storefront/pkg/httputil"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
)

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, filter repository.UserFilter, p pagination.Params) ([]domain.User, int, error) {
	args := m.Called(ctx, filter, p)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type mockTokenRepository struct {
	mock.Mock
}

func (m *mockTokenRepository) Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockTokenRepository) RevokeByUserID(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockWishlistRepository struct {
	mock.Mock
}

func (m *mockWishlistRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *mockWishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *mockWishlistRepository) List(ctx context.Context, userID uuid.UUID, p pagination.Params) ([]domain.WishlistItem, int, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.WishlistItem), args.Int(1), args.Error(2)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *catalogdomain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalogdomain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogdomain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*catalogdomain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogdomain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter catalogrepo.ProductFilter, p pagination.Params) ([]catalogdomain.Product, int, error) {
	args := m.Called(ctx, filter, p)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]catalogdomain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) ListFeatured(ctx context.Context, limit int) ([]catalogdomain.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalogdomain.Product), args.Error(1)
}

func (m *mockProductRepository) ListLowStock(ctx context.Context, p pagination.Params) ([]catalogdomain.Product, int, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]catalogdomain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, product *catalogdomain.Product) error {
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

type testEnv struct {
	users    *mockUserRepository
	tokens   *mockTokenRepository
	wishlist *mockWishlistRepository
	products *mockProductRepository
	jwt      *auth.JWTManager
	router   chi.Router
}

func setupEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	env := &testEnv{
		users:    new(mockUserRepository),
		tokens:   new(mockTokenRepository),
		wishlist: new(mockWishlistRepository),
		products: new(mockProductRepository),
		jwt:      auth.NewJWTManager("test-secret", 15*time.Minute, 7*24*time.Hour),
	}

	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
	svc := service.NewUserService(env.users, env.tokens, env.wishlist, env.products, env.jwt, producer, logger)

	authHandler := NewAuthHandler(svc, logger)
	userHandler := NewUserHandler(svc, logger)
	wishlistHandler := NewWishlistHandler(svc, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/me", authHandler.Me)
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
			r.Get("/{id}", userHandler.Get)
			r.Put("/{id}", userHandler.Update)
			r.Delete("/{id}", userHandler.Delete)
		})
		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlistHandler.List)
			r.Post("/", wishlistHandler.Add)
			r.Delete("/{productId}", wishlistHandler.Remove)
		})
	})
	env.router = r

	return env
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authedRequest(t *testing.T, method, target string, body any, userID uuid.UUID, role string) *http.Request {
	t.Helper()
	req := jsonRequest(t, method, target, body)
	return req.WithContext(middleware.WithUser(req.Context(), userID.String(), role))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegisterEndpoint_Created(t *testing.T) {
	env := setupEnv()
	env.users.On("Create", mock.Anything, mock.Anything).Return(nil)
	env.tokens.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"name":     "Jane Doe",
		"email":    "jane@example.com",
		"password": "Sunset42x",
	})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	tokens := data["tokens"].(map[string]any)
	assert.NotEmpty(t, tokens["access_token"])
	assert.NotEmpty(t, tokens["refresh_token"])
	user := data["user"].(map[string]any)
	assert.Equal(t, "customer", user["role"])
	assert.NotContains(t, user, "password_hash")
}

func TestRegisterEndpoint_InvalidEmail(t *testing.T) {
	env := setupEnv()

	req := jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"name":     "Jane Doe",
		"email":    "not-an-email",
		"password": "Sunset42x",
	})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Contains(t, resp.Fields, "Email")
	env.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	env := setupEnv()

	hash, err := bcrypt.GenerateFromPassword([]byte("Sunset42x"), bcrypt.MinCost)
	require.NoError(t, err)
	env.users.On("GetByEmail", mock.Anything, "jane@example.com").Return(&domain.User{
		ID:           uuid.New(),
		Email:        "jane@example.com",
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
		IsActive:     true,
	}, nil)

	req := jsonRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email":    "jane@example.com",
		"password": "wrong-password",
	})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "invalid email or password")
}

func TestRefreshEndpoint_RotatesTokens(t *testing.T) {
	env := setupEnv()

	userID := uuid.New()
	refreshToken, err := env.jwt.GenerateRefreshToken(userID.String())
	require.NoError(t, err)

	env.tokens.On("GetByHash", mock.Anything, mock.Anything).Return(&domain.RefreshToken{
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	env.tokens.On("Revoke", mock.Anything, mock.Anything).Return(nil)
	env.users.On("GetByID", mock.Anything, userID).Return(&domain.User{
		ID:       userID,
		Email:    "jane@example.com",
		Role:     domain.RoleCustomer,
		IsActive: true,
	}, nil)
	env.tokens.On("Create", mock.Anything, userID, mock.Anything, mock.Anything).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/api/v1/auth/refresh", map[string]any{
		"refresh_token": refreshToken,
	})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.NotEmpty(t, data["access_token"])
	assert.NotEqual(t, refreshToken, data["refresh_token"])
}

func TestMeEndpoint_ReturnsProfile(t *testing.T) {
	env := setupEnv()

	userID := uuid.New()
	env.users.On("GetByID", mock.Anything, userID).Return(&domain.User{
		ID:       userID,
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Role:     domain.RoleCustomer,
		IsActive: true,
	}, nil)

	req := authedRequest(t, http.MethodGet, "/api/v1/auth/me", nil, userID, domain.RoleCustomer)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, "jane@example.com", data["email"])
}
