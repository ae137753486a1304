package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role constants define the allowed user roles.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// ValidRoles returns the set of valid user roles.
func ValidRoles() []string {
	return []string{RoleCustomer, RoleStaff, RoleAdmin}
}

// IsValidRole checks whether the given role string is a valid user role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// User represents a registered account, customer or back-office.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken represents a stored refresh token for a user session.
// Only the SHA-256 hash of the token is persisted.
type RefreshToken struct {
	ID        int64      `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// WishlistItem is a wishlist row joined with a small product summary so
// clients can render the list without a second round trip.
type WishlistItem struct {
	ProductID    uuid.UUID `json:"product_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	SellingPrice int64     `json:"selling_price"`
	Image        string    `json:"image,omitempty"`
	InStock      bool      `json:"in_stock"`
	AddedAt      time.Time `json:"added_at"`
}
