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
	"github.com/utafrali/storefront/pkg/slug"
)

// CategoryService implements the business logic for category operations.
type CategoryService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	cache      Cache
	logger     *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	cache Cache,
	logger *slog.Logger,
) *CategoryService {
	return &CategoryService{
		categories: categories,
		products:   products,
		cache:      cache,
		logger:     logger,
	}
}

// CreateCategoryInput holds the parameters for creating a category.
type CreateCategoryInput struct {
	Name        string
	ParentID    *uuid.UUID
	SortOrder   int
	Description string
}

// UpdateCategoryInput holds the parameters for updating a category.
type UpdateCategoryInput struct {
	Name        *string
	ParentID    *uuid.UUID
	SortOrder   *int
	IsActive    *bool
	Description *string
}

// CreateCategory creates a category with a unique slug.
func (s *CategoryService) CreateCategory(ctx context.Context, input *CreateCategoryInput) (*domain.Category, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("category name is required")
	}

	if input.ParentID != nil {
		if _, err := s.categories.GetByID(ctx, *input.ParentID); err != nil {
			return nil, fmt.Errorf("get parent category: %w", err)
		}
	}

	categorySlug, err := slug.Unique(ctx, input.Name, s.categories.SlugExists)
	if err != nil {
		return nil, fmt.Errorf("generate category slug: %w", err)
	}

	now := time.Now().UTC()
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        input.Name,
		Slug:        categorySlug,
		ParentID:    input.ParentID,
		SortOrder:   input.SortOrder,
		IsActive:    true,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.invalidateTree(ctx)

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID.String()),
		slog.String("slug", category.Slug),
	)

	return category, nil
}

// GetCategory retrieves a category by UUID or slug.
func (s *CategoryService) GetCategory(ctx context.Context, idOrSlug string) (*domain.Category, error) {
	var (
		category *domain.Category
		err      error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		category, err = s.categories.GetByID(ctx, id)
	} else {
		category, err = s.categories.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

// ListCategories returns all active categories as a flat list.
func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CategoryTree returns the nested category tree, consulting the cache first.
func (s *CategoryService) CategoryTree(ctx context.Context) ([]*domain.Category, error) {
	if s.cache != nil {
		if tree, err := s.cache.GetTree(ctx); err == nil {
			return tree, nil
		}
	}

	tree, err := s.categories.ListTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("build category tree: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetTree(ctx, tree); err != nil {
			s.logger.WarnContext(ctx, "failed to cache category tree",
				slog.String("error", err.Error()),
			)
		}
	}

	return tree, nil
}

// UpdateCategory applies partial updates; a rename regenerates the slug.
func (s *CategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, input *UpdateCategoryInput) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category for update: %w", err)
	}
	oldSlug := category.Slug

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("category name must not be empty")
		}
		if *input.Name != category.Name {
			newSlug, err := slug.Unique(ctx, *input.Name, func(ctx context.Context, candidate string) (bool, error) {
				if candidate == oldSlug {
					return false, nil
				}
				return s.categories.SlugExists(ctx, candidate)
			})
			if err != nil {
				return nil, fmt.Errorf("generate category slug: %w", err)
			}
			category.Slug = newSlug
		}
		category.Name = *input.Name
	}

	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, apperrors.InvalidInput("category cannot be its own parent")
		}
		category.ParentID = input.ParentID
	}
	if input.SortOrder != nil {
		category.SortOrder = *input.SortOrder
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if input.Description != nil {
		category.Description = *input.Description
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	s.invalidateTree(ctx)

	s.logger.InfoContext(ctx, "category updated",
		slog.String("category_id", category.ID.String()),
		slog.String("slug", category.Slug),
	)

	return category, nil
}

// DeleteCategory removes a category. Deletion is blocked while products
// still reference it.
func (s *CategoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	count, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("count products for category delete: %w", err)
	}
	if count > 0 {
		return apperrors.InvalidState(fmt.Sprintf("cannot delete category with %d products assigned", count))
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.invalidateTree(ctx)

	s.logger.InfoContext(ctx, "category deleted",
		slog.String("category_id", id.String()),
	)

	return nil
}

func (s *CategoryService) invalidateTree(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTree(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate category tree cache",
			slog.String("error", err.Error()),
		)
	}
}
