package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/user/domain"
	"github.com/utafrali/storefront/internal/user/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

func TestCreateUserEndpoint_StaffRole(t *testing.T) {
	env := setupEnv()
	env.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.RoleStaff
	})).Return(nil)

	req := authedRequest(t, http.MethodPost, "/api/v1/users", map[string]any{
		"name":     "Sam Ops",
		"email":    "sam@example.com",
		"password": "Sunset42x",
		"role":     "staff",
	}, uuid.New(), domain.RoleAdmin)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, "staff", data["role"])
}

func TestCreateUserEndpoint_UnknownRole(t *testing.T) {
	env := setupEnv()

	req := authedRequest(t, http.MethodPost, "/api/v1/users", map[string]any{
		"name":     "Sam Ops",
		"email":    "sam@example.com",
		"password": "Sunset42x",
		"role":     "superadmin",
	}, uuid.New(), domain.RoleAdmin)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Contains(t, resp.Fields, "Role")
	env.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListUsersEndpoint_RoleFilter(t *testing.T) {
	env := setupEnv()

	env.users.On("List", mock.Anything,
		repository.UserFilter{Role: domain.RoleStaff},
		pagination.Params{Page: 1, Limit: 20},
	).Return([]domain.User{{ID: uuid.New(), Name: "Sam Ops", Role: domain.RoleStaff}}, 1, nil)

	req := authedRequest(t, http.MethodGet, "/api/v1/users?role=staff", nil, uuid.New(), domain.RoleAdmin)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]any)
	items := data["items"].([]any)
	assert.Len(t, items, 1)
}

func TestUpdateUserEndpoint_Deactivate(t *testing.T) {
	env := setupEnv()

	targetID := uuid.New()
	env.users.On("GetByID", mock.Anything, targetID).Return(&domain.User{
		ID:       targetID,
		Name:     "Jane Doe",
		Role:     domain.RoleCustomer,
		IsActive: true,
	}, nil)
	env.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return !u.IsActive
	})).Return(nil)
	env.tokens.On("RevokeByUserID", mock.Anything, targetID).Return(nil)

	req := authedRequest(t, http.MethodPut, "/api/v1/users/"+targetID.String(), map[string]any{
		"is_active": false,
	}, uuid.New(), domain.RoleAdmin)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env.tokens.AssertExpectations(t)
}

func TestDeleteUserEndpoint_SelfForbidden(t *testing.T) {
	env := setupEnv()

	adminID := uuid.New()
	req := authedRequest(t, http.MethodDelete, "/api/v1/users/"+adminID.String(), nil, adminID, domain.RoleAdmin)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Contains(t, resp.Message, "own account")
}

func TestDeleteUserEndpoint_Deactivates(t *testing.T) {
	env := setupEnv()

	targetID := uuid.New()
	env.users.On("GetByID", mock.Anything, targetID).Return(&domain.User{
		ID:       targetID,
		Role:     domain.RoleCustomer,
		IsActive: true,
	}, nil)
	env.users.On("Update", mock.Anything, mock.Anything).Return(nil)
	env.tokens.On("RevokeByUserID", mock.Anything, targetID).Return(nil)

	req := authedRequest(t, http.MethodDelete, "/api/v1/users/"+targetID.String(), nil, uuid.New(), domain.RoleAdmin)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "user deactivated", resp.Message)
}

func TestGetUserEndpoint_InvalidID(t *testing.T) {
	env := setupEnv()

	req := authedRequest(t, http.MethodGet, "/api/v1/users/not-a-uuid", nil, uuid.New(), domain.RoleAdmin)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUserEndpoint_NotFound(t *testing.T) {
	env := setupEnv()

	targetID := uuid.New()
	env.users.On("GetByID", mock.Anything, targetID).
		Return(nil, apperrors.NotFound("user", targetID.String()))

	req := authedRequest(t, http.MethodGet, "/api/v1/users/"+targetID.String(), nil, uuid.New(), domain.RoleAdmin)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
