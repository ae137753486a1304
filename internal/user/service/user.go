package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	catalogrepo "github.com/utafrali/storefront/internal/catalog/repository"
	"github.com/utafrali/storefront/internal/user/auth"
	"github.com/utafrali/storefront/internal/user/domain"
	"github.com/utafrali/storefront/internal/user/event"
	"github.com/utafrali/storefront/internal/user/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// UserService implements the business logic for account, auth, and wishlist operations.
type UserService struct {
	users    repository.UserRepository
	tokens   repository.RefreshTokenRepository
	wishlist repository.WishlistRepository
	products catalogrepo.ProductRepository
	jwt      *auth.JWTManager
	producer *event.Producer
	logger   *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	wishlist repository.WishlistRepository,
	products catalogrepo.ProductRepository,
	jwt *auth.JWTManager,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		tokens:   tokens,
		wishlist: wishlist,
		products: products,
		jwt:      jwt,
		producer: producer,
		logger:   logger,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// CreateUserInput holds the parameters for an admin creating an account.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     string
}

// UpdateUserInput holds the parameters for an admin updating an account.
// Nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string
	Phone    *string
	Role     *string
	IsActive *bool
}

// Register creates a customer account, hashes the password, and returns tokens.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.TokenPair, error) {
	if input.Name == "" {
		return nil, nil, apperrors.InvalidInput("name is required")
	}
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	user, err := s.newUser(input.Name, input.Email, input.Password, input.Phone, domain.RoleCustomer)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// Login authenticates a user with email and password, returning tokens.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if !user.IsActive {
		return nil, nil, apperrors.Unauthorized("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID.String()),
	)

	return user, tokens, nil
}

// RefreshToken validates a refresh token, rotates it, and returns a new pair.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	tokenHash := hashToken(refreshToken)
	stored, err := s.tokens.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, apperrors.Unauthorized("refresh token not found")
	}

	if stored.RevokedAt != nil {
		return nil, apperrors.Unauthorized("refresh token has been revoked")
	}

	if time.Now().UTC().After(stored.ExpiresAt) {
		return nil, apperrors.Unauthorized("refresh token has expired")
	}

	// Rotate: the presented token is spent regardless of what happens next.
	if err := s.tokens.Revoke(ctx, tokenHash); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke old refresh token",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token subject")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is deactivated")
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID.String()),
	)

	return tokens, nil
}

// GetUser retrieves a user by their ID.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns a page of users matching the filter. Admin only.
func (s *UserService) ListUsers(ctx context.Context, filter repository.UserFilter, p pagination.Params) (*pagination.Result[domain.User], error) {
	if filter.Role != "" && !domain.IsValidRole(filter.Role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role filter: %s", filter.Role))
	}

	p.Normalize()
	users, total, err := s.users.List(ctx, filter, p)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	result := pagination.NewResult(users, total, p)
	return &result, nil
}

// CreateUser creates an account with an explicit role. Admin only.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if !domain.IsValidRole(input.Role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role: %s", input.Role))
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	user, err := s.newUser(input.Name, input.Email, input.Password, input.Phone, input.Role)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID.String()),
		slog.String("role", user.Role),
	)

	return user, nil
}

// UpdateUser modifies an account. Admin only.
func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		user.Name = *input.Name
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.Role != nil {
		if !domain.IsValidRole(*input.Role) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role: %s", *input.Role))
		}
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	// Deactivation invalidates every open session.
	if input.IsActive != nil && !*input.IsActive {
		if err := s.tokens.RevokeByUserID(ctx, user.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke refresh tokens on deactivation",
				slog.String("user_id", user.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "user updated",
		slog.String("user_id", user.ID.String()),
	)

	return user, nil
}

// DeleteUser deactivates an account rather than removing the row, so order
// history keeps a valid reference. Admins cannot deactivate themselves.
func (s *UserService) DeleteUser(ctx context.Context, id, actorID uuid.UUID) error {
	if id == actorID {
		return apperrors.InvalidInput("cannot delete your own account")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get user for delete: %w", err)
	}

	if !user.IsActive {
		return nil
	}

	user.IsActive = false
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	if err := s.tokens.RevokeByUserID(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens on delete",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishUserDeactivated(ctx, user, actorID.String()); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deactivated event",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deactivated",
		slog.String("user_id", user.ID.String()),
		slog.String("actor_id", actorID.String()),
	)

	return nil
}

// AddToWishlist saves a product to the user's wishlist. Adding a product that
// is already saved is a no-op.
func (s *UserService) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product for wishlist: %w", err)
	}
	if !product.IsActive {
		return apperrors.InvalidInput("product is unavailable")
	}

	if err := s.wishlist.Add(ctx, userID, productID); err != nil {
		return fmt.Errorf("add to wishlist: %w", err)
	}

	return nil
}

// RemoveFromWishlist deletes a product from the user's wishlist.
func (s *UserService) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.wishlist.Remove(ctx, userID, productID); err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	return nil
}

// ListWishlist returns a page of the user's wishlist with product summaries.
func (s *UserService) ListWishlist(ctx context.Context, userID uuid.UUID, p pagination.Params) (*pagination.Result[domain.WishlistItem], error) {
	p.Normalize()
	items, total, err := s.wishlist.List(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	result := pagination.NewResult(items, total, p)
	return &result, nil
}

// newUser builds a user with a freshly hashed password.
func (s *UserService) newUser(name, email, password, phone, role string) (*domain.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Phone:        phone,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// generateTokenPair issues access and refresh tokens and persists the hash of
// the refresh token for later rotation.
func (s *UserService) generateTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.jwt.RefreshExpiry())
	if err := s.tokens.Create(ctx, user.ID, hashToken(refreshToken), expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
