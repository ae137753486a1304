package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/catalog/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
// Review writes and the product rating aggregate commit together.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a review and refreshes the product's rating aggregate in
// one transaction. A duplicate (product, user) pair fails the unique index
// and surfaces as InvalidInput.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create review: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.Exec(ctx, query,
		review.ID, review.ProductID, review.UserID, review.Rating, review.Comment,
		review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.InvalidInput("you have already reviewed this product")
		}
		return fmt.Errorf("insert review: %w", err)
	}

	if err := refreshRatingAggregate(ctx, tx, review.ProductID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its unique identifier.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := `
		SELECT id, product_id, user_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE id = $1`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Comment,
		&rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// ListByProduct returns paginated reviews for a product, newest first,
// joined with the reviewer's name.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID, p pagination.Params) ([]domain.Review, int, error) {
	query := `
		SELECT rv.id, rv.product_id, rv.user_id, u.name, rv.rating, rv.comment,
		       rv.created_at, rv.updated_at,
		       count(*) OVER() AS total_count
		FROM reviews rv
		JOIN users u ON u.id = rv.user_id
		WHERE rv.product_id = $1
		ORDER BY rv.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, productID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	total := 0
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID, &rv.ProductID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Comment,
			&rv.CreatedAt, &rv.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, total, nil
}

// Delete removes a review and refreshes the product's rating aggregate in
// one transaction.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete review: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var productID uuid.UUID
	err = tx.QueryRow(ctx, `DELETE FROM reviews WHERE id = $1 RETURNING product_id`, id).
		Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}

	if err := refreshRatingAggregate(ctx, tx, productID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete review: %w", err)
	}

	return nil
}

// refreshRatingAggregate recomputes rating and num_reviews on the product
// row from the reviews table. Rating is rounded to one decimal place.
func refreshRatingAggregate(ctx context.Context, tx pgx.Tx, productID uuid.UUID) error {
	query := `
		UPDATE products
		SET rating = COALESCE(agg.avg_rating, 0), num_reviews = agg.review_count
		FROM (
			SELECT ROUND(AVG(rating)::numeric, 1) AS avg_rating, count(*) AS review_count
			FROM reviews
			WHERE product_id = $1
		) AS agg
		WHERE products.id = $1`

	if _, err := tx.Exec(ctx, query, productID); err != nil {
		return fmt.Errorf("refresh rating aggregate: %w", err)
	}
	return nil
}
