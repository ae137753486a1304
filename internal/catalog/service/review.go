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
)

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	cache    Cache
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	cache Cache,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
	Rating    int
	Comment   string
}

// CreateReview creates a review for an active product. Each user may
// review a product once; the repository enforces this and the product's
// rating aggregate updates in the same transaction.
func (s *ReviewService) CreateReview(ctx context.Context, input *CreateReviewInput) (*domain.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for review: %w", err)
	}
	if !product.IsActive {
		return nil, apperrors.InvalidInput("product is not available for review")
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New(),
		ProductID: input.ProductID,
		UserID:    input.UserID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.invalidateProduct(ctx, product)

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID.String()),
		slog.String("product_id", review.ProductID.String()),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// ListReviews returns paginated reviews for a product, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, productID uuid.UUID, p pagination.Params) (*pagination.Result[domain.Review], error) {
	p.Normalize()

	reviews, total, err := s.reviews.ListByProduct(ctx, productID, p)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	result := pagination.NewResult(reviews, total, p)
	return &result, nil
}

// DeleteReview removes a review. Only the review's owner or an admin may
// delete it.
func (s *ReviewService) DeleteReview(ctx context.Context, id, actorID uuid.UUID, actorRole string) error {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review for delete: %w", err)
	}

	if review.UserID != actorID && actorRole != "admin" {
		return apperrors.Forbidden("you may only delete your own reviews")
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if product, err := s.products.GetByID(ctx, review.ProductID); err == nil {
		s.invalidateProduct(ctx, product)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", id.String()),
		slog.String("actor_id", actorID.String()),
	)

	return nil
}

// invalidateProduct drops the product's cache entries after a rating change.
func (s *ReviewService) invalidateProduct(ctx context.Context, product *domain.Product) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProduct(ctx, product.ID, product.Slug); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate product cache",
			slog.String("product_id", product.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}
