package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/catalog/domain"
	"github.com/utafrali/storefront/internal/catalog/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/slug"
)

// Cache abstracts the Redis catalog cache. A nil cache disables caching;
// cache errors are treated as misses and never fail a request.
type Cache interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	SetProduct(ctx context.Context, p *domain.Product) error
	InvalidateProduct(ctx context.Context, id uuid.UUID, slug string) error
	GetTree(ctx context.Context) ([]*domain.Category, error)
	SetTree(ctx context.Context, tree []*domain.Category) error
	InvalidateTree(ctx context.Context) error
}

// ProductService implements the business logic for product operations.
type ProductService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      Cache
	logger     *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	cache Cache,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		products:   products,
		categories: categories,
		cache:      cache,
		logger:     logger,
	}
}

// VariantInput describes one variant in a create or update request. A nil
// ID means a new variant; an existing ID preserves the variant's stock.
type VariantInput struct {
	ID              *uuid.UUID
	Name            string
	SKU             string
	Attributes      map[string]string
	AdditionalPrice int64
	IsActive        bool
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name              string
	SKU               string
	Description       string
	ShortDescription  string
	CategoryID        *uuid.UUID
	BasePrice         int64
	SellingPrice      int64
	LowStockThreshold int
	Attributes        map[string]string
	Tags              []string
	Images            []string
	IsFeatured        bool
	Variants          []VariantInput
	ActorID           uuid.UUID
}

// UpdateProductInput holds the parameters for updating a product. Nil
// pointers leave the field untouched; Variants always replaces the full
// list when non-nil.
type UpdateProductInput struct {
	Name              *string
	Description       *string
	ShortDescription  *string
	CategoryID        *uuid.UUID
	BasePrice         *int64
	SellingPrice      *int64
	LowStockThreshold *int
	Attributes        map[string]string
	Tags              []string
	Images            []string
	IsActive          *bool
	IsFeatured        *bool
	Variants          []VariantInput
	ActorID           uuid.UUID
}

// CreateProduct creates a product with a unique slug, a generated SKU when
// none is supplied, and derived variant SKUs.
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.BasePrice < 0 || input.SellingPrice < 0 {
		return nil, apperrors.InvalidInput("prices must not be negative")
	}

	productSlug, err := slug.Unique(ctx, input.Name, s.products.SlugExists)
	if err != nil {
		return nil, fmt.Errorf("generate product slug: %w", err)
	}

	sku := input.SKU
	if sku == "" {
		prefix, err := s.skuPrefix(ctx, input.CategoryID)
		if err != nil {
			return nil, err
		}
		sku = GenerateSKU(prefix)
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:                uuid.New(),
		Name:              input.Name,
		Slug:              productSlug,
		SKU:               sku,
		Description:       input.Description,
		ShortDescription:  input.ShortDescription,
		CategoryID:        input.CategoryID,
		BasePrice:         input.BasePrice,
		SellingPrice:      input.SellingPrice,
		LowStockThreshold: input.LowStockThreshold,
		HasVariants:       len(input.Variants) > 0,
		Attributes:        input.Attributes,
		Tags:              input.Tags,
		Images:            input.Images,
		IsActive:          true,
		IsFeatured:        input.IsFeatured,
		CreatedBy:         input.ActorID,
		UpdatedBy:         input.ActorID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	product.Variants = buildVariants(product, input.Variants, now)

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID.String()),
		slog.String("slug", product.Slug),
		slog.String("sku", product.SKU),
		slog.Int("variants", len(product.Variants)),
	)

	return product, nil
}

// GetProduct retrieves a product by UUID or slug, consulting the cache first.
func (s *ProductService) GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return s.getByID(ctx, id)
	}
	return s.getBySlug(ctx, idOrSlug)
}

func (s *ProductService) getByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if s.cache != nil {
		if p, err := s.cache.GetProduct(ctx, id); err == nil {
			return p, nil
		}
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	s.cacheProduct(ctx, p)
	return p, nil
}

func (s *ProductService) getBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	if s.cache != nil {
		if p, err := s.cache.GetProductBySlug(ctx, productSlug); err == nil {
			return p, nil
		}
	}

	p, err := s.products.GetBySlug(ctx, productSlug)
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	s.cacheProduct(ctx, p)
	return p, nil
}

// ListProducts returns a filtered, paginated product list.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter, p pagination.Params) (*pagination.Result[domain.Product], error) {
	p.Normalize()

	products, total, err := s.products.List(ctx, filter, p)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	result := pagination.NewResult(products, total, p)
	return &result, nil
}

// FeaturedProducts returns the active featured products.
func (s *ProductService) FeaturedProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	products, err := s.products.ListFeatured(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	return products, nil
}

// LowStockProducts returns active products at or below their threshold.
func (s *ProductService) LowStockProducts(ctx context.Context, p pagination.Params) (*pagination.Result[domain.Product], error) {
	p.Normalize()

	products, total, err := s.products.ListLowStock(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}

	result := pagination.NewResult(products, total, p)
	return &result, nil
}

// UpdateProduct applies partial updates. A rename regenerates the slug
// with the same uniqueness loop; a non-nil variant list replaces the
// product's variants wholesale.
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}
	oldSlug := product.Slug

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		if *input.Name != product.Name {
			newSlug, err := slug.Unique(ctx, *input.Name, func(ctx context.Context, candidate string) (bool, error) {
				if candidate == oldSlug {
					return false, nil
				}
				return s.products.SlugExists(ctx, candidate)
			})
			if err != nil {
				return nil, fmt.Errorf("generate product slug: %w", err)
			}
			product.Slug = newSlug
		}
		product.Name = *input.Name
	}

	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.ShortDescription != nil {
		product.ShortDescription = *input.ShortDescription
	}
	if input.CategoryID != nil {
		product.CategoryID = input.CategoryID
	}
	if input.BasePrice != nil {
		if *input.BasePrice < 0 {
			return nil, apperrors.InvalidInput("base price must not be negative")
		}
		product.BasePrice = *input.BasePrice
	}
	if input.SellingPrice != nil {
		if *input.SellingPrice < 0 {
			return nil, apperrors.InvalidInput("selling price must not be negative")
		}
		product.SellingPrice = *input.SellingPrice
	}
	if input.LowStockThreshold != nil {
		product.LowStockThreshold = *input.LowStockThreshold
	}
	if input.Attributes != nil {
		product.Attributes = input.Attributes
	}
	if input.Tags != nil {
		product.Tags = input.Tags
	}
	if input.Images != nil {
		product.Images = input.Images
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}

	if input.Variants != nil {
		product.Variants = buildVariants(product, input.Variants, time.Now().UTC())
		product.HasVariants = len(product.Variants) > 0
	}

	product.UpdatedBy = input.ActorID

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateProduct(ctx, product.ID, oldSlug, product.Slug)

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID.String()),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// DeleteProduct soft-deletes a product by deactivating it.
func (s *ProductService) DeleteProduct(ctx context.Context, id, actor uuid.UUID) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	if err := s.products.Deactivate(ctx, id, actor); err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}

	s.invalidateProduct(ctx, id, product.Slug, product.Slug)

	s.logger.InfoContext(ctx, "product deactivated",
		slog.String("product_id", id.String()),
	)

	return nil
}

// --- helpers ---

func (s *ProductService) cacheProduct(ctx context.Context, p *domain.Product) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetProduct(ctx, p); err != nil {
		s.logger.WarnContext(ctx, "failed to cache product",
			slog.String("product_id", p.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ProductService) invalidateProduct(ctx context.Context, id uuid.UUID, slugs ...string) {
	if s.cache == nil {
		return
	}
	seen := map[string]bool{}
	for _, sl := range slugs {
		if seen[sl] {
			continue
		}
		seen[sl] = true
		if err := s.cache.InvalidateProduct(ctx, id, sl); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate product cache",
				slog.String("product_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// skuPrefix derives the SKU prefix from the product's category name, or
// "PRD" when the product is uncategorized.
func (s *ProductService) skuPrefix(ctx context.Context, categoryID *uuid.UUID) (string, error) {
	if categoryID == nil {
		return "PRD", nil
	}

	category, err := s.categories.GetByID(ctx, *categoryID)
	if err != nil {
		return "", fmt.Errorf("get category for sku prefix: %w", err)
	}

	return skuCode(category.Name, 3, "PRD"), nil
}

// buildVariants converts variant inputs into domain variants with derived
// SKUs. Existing IDs pass through so the repository preserves their stock.
func buildVariants(product *domain.Product, inputs []VariantInput, now time.Time) []domain.Variant {
	variants := make([]domain.Variant, 0, len(inputs))
	for _, in := range inputs {
		v := domain.Variant{
			ID:              uuid.New(),
			ProductID:       product.ID,
			Name:            in.Name,
			SKU:             in.SKU,
			Attributes:      in.Attributes,
			AdditionalPrice: in.AdditionalPrice,
			IsActive:        in.IsActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if in.ID != nil {
			v.ID = *in.ID
		}
		if v.SKU == "" {
			v.SKU = DeriveVariantSKU(product.SKU, in.Name, in.Attributes)
		}
		variants = append(variants, v)
	}
	return variants
}
