package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/user/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role   string
	Search string
}

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns a page of users matching the filter and the total count.
	List(ctx context.Context, filter UserFilter, p pagination.Params) ([]domain.User, int, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error
}

// RefreshTokenRepository defines the interface for refresh token persistence operations.
type RefreshTokenRepository interface {
	// Create stores a new refresh token hash.
	Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Revoke revokes a specific refresh token by its hash.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeByUserID revokes all refresh tokens for the given user.
	RevokeByUserID(ctx context.Context, userID uuid.UUID) error
}

// WishlistRepository defines the interface for wishlist persistence operations.
type WishlistRepository interface {
	// Add inserts a product into the user's wishlist (idempotent).
	Add(ctx context.Context, userID, productID uuid.UUID) error

	// Remove deletes a product from the user's wishlist.
	Remove(ctx context.Context, userID, productID uuid.UUID) error

	// List returns a page of wishlist items joined with their product summary
	// and the total count.
	List(ctx context.Context, userID uuid.UUID, p pagination.Params) ([]domain.WishlistItem, int, error)
}
