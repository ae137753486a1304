package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/catalog/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string
	MinPrice   *int64
	MaxPrice   *int64
	ActiveOnly bool
}

// ProductRepository defines product persistence operations. Create and
// Update write the product row and its full variant list in one
// transaction; stock columns are never written here.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter, p pagination.Params) ([]domain.Product, int, error)
	ListFeatured(ctx context.Context, limit int) ([]domain.Product, error)
	ListLowStock(ctx context.Context, p pagination.Params) ([]domain.Product, int, error)
	Update(ctx context.Context, product *domain.Product) error
	Deactivate(ctx context.Context, id, actor uuid.UUID) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error)
}

// CategoryRepository defines category persistence operations.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListAll(ctx context.Context) ([]domain.Category, error)
	ListTree(ctx context.Context) ([]*domain.Category, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// ReviewRepository defines review persistence operations. Create and
// Delete maintain the product's rating and num_reviews aggregate in the
// same transaction as the review write.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, p pagination.Params) ([]domain.Review, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
