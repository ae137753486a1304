package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/user/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// WishlistRepository implements repository.WishlistRepository using PostgreSQL.
type WishlistRepository struct {
	pool database.DBTX
}

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(pool database.DBTX) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

// Add inserts a product into the user's wishlist.
// Uses ON CONFLICT DO NOTHING for idempotent behavior.
func (r *WishlistRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	query := `
		INSERT INTO wishlist (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, userID, productID)
	if err != nil {
		return fmt.Errorf("add to wishlist: %w", err)
	}

	return nil
}

// Remove deletes a product from the user's wishlist.
func (r *WishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	query := `DELETE FROM wishlist WHERE user_id = $1 AND product_id = $2`

	ct, err := r.pool.Exec(ctx, query, userID, productID)
	if err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist item", productID.String())
	}

	return nil
}

// List returns a page of wishlist items joined with their product summary
// and the total count.
func (r *WishlistRepository) List(ctx context.Context, userID uuid.UUID, p pagination.Params) ([]domain.WishlistItem, int, error) {
	query := `
		SELECT w.product_id, p.name, p.slug, p.selling_price, p.images, p.current_stock > 0,
		       w.created_at, count(*) OVER() AS total
		FROM wishlist w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wishlist items: %w", err)
	}
	defer rows.Close()

	items := []domain.WishlistItem{}
	total := 0
	for rows.Next() {
		var (
			item   domain.WishlistItem
			images []byte
		)
		if err := rows.Scan(
			&item.ProductID, &item.Name, &item.Slug, &item.SellingPrice,
			&images, &item.InStock, &item.AddedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan wishlist item: %w", err)
		}
		item.Image = firstImage(images)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wishlist rows: %w", err)
	}

	return items, total, nil
}

// firstImage picks the lead image out of the product's JSONB image list.
func firstImage(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var images []string
	if err := json.Unmarshal(raw, &images); err != nil || len(images) == 0 {
		return ""
	}
	return images[0]
}
