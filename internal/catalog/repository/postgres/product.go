package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/catalog/domain"
	"github.com/utafrali/storefront/internal/catalog/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// productColumns is the standard SELECT column list for products.
const productColumns = `id, name, slug, sku, description, short_description, category_id,
	base_price, selling_price, current_stock, avg_purchase_price, low_stock_threshold,
	has_variants, attributes, tags, images, is_active, is_featured, rating, num_reviews,
	created_by, updated_by, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a product and its variants in one transaction.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	attrs, tags, images, err := marshalProductJSON(p)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create product: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO products (id, name, slug, sku, description, short_description, category_id,
			base_price, selling_price, current_stock, avg_purchase_price, low_stock_threshold,
			has_variants, attributes, tags, images, is_active, is_featured, rating, num_reviews,
			created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err = tx.Exec(ctx, query,
		p.ID, p.Name, p.Slug, p.SKU, p.Description, p.ShortDescription, p.CategoryID,
		p.BasePrice, p.SellingPrice, p.CurrentStock, p.AvgPurchasePrice, p.LowStockThreshold,
		p.HasVariants, attrs, tags, images, p.IsActive, p.IsFeatured, p.Rating, p.NumReviews,
		p.CreatedBy, p.UpdatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug or sku", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	for i := range p.Variants {
		if err := insertVariant(ctx, tx, &p.Variants[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create product: %w", err)
	}

	return nil
}

// GetByID retrieves a product with its variants by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	return r.getProduct(ctx, query, id)
}

// GetBySlug retrieves a product with its variants by slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE slug = $1`, productColumns)
	return r.getProduct(ctx, query, slug)
}

func (r *ProductRepository) getProduct(ctx context.Context, query string, arg any) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}

	variants, err := r.listVariants(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Variants = variants

	return p, nil
}

// List returns products matching the filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter, p pagination.Params) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = true")
	}
	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d OR sku ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("selling_price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("selling_price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	args = append(args, p.Limit, p.Offset)

	return r.queryProducts(ctx, query, args...)
}

// ListFeatured returns active featured products, most recently updated first.
func (r *ProductRepository) ListFeatured(ctx context.Context, limit int) ([]domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE is_featured = true AND is_active = true
		ORDER BY updated_at DESC
		LIMIT $1`, productColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate featured products: %w", err)
	}

	return products, nil
}

// ListLowStock returns active products at or below their low-stock
// threshold, most depleted first.
func (r *ProductRepository) ListLowStock(ctx context.Context, p pagination.Params) ([]domain.Product, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		WHERE is_active = true AND current_stock <= low_stock_threshold
		ORDER BY current_stock ASC, name
		LIMIT $1 OFFSET $2`, productColumns)

	return r.queryProducts(ctx, query, p.Limit, p.Offset)
}

// Update modifies a product and replaces its variant list in one transaction.
// Stock and average-price columns are owned by the inventory ledger and are
// not written. Surviving variants keep their stock; removed variants are
// deleted; new ones insert with zero stock.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	attrs, tags, images, err := marshalProductJSON(p)
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update product: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE products
		SET name = $1, slug = $2, sku = $3, description = $4, short_description = $5,
		    category_id = $6, base_price = $7, selling_price = $8, low_stock_threshold = $9,
		    has_variants = $10, attributes = $11, tags = $12, images = $13,
		    is_active = $14, is_featured = $15, updated_by = $16, updated_at = $17
		WHERE id = $18`

	ct, err := tx.Exec(ctx, query,
		p.Name, p.Slug, p.SKU, p.Description, p.ShortDescription,
		p.CategoryID, p.BasePrice, p.SellingPrice, p.LowStockThreshold,
		p.HasVariants, attrs, tags, images,
		p.IsActive, p.IsFeatured, p.UpdatedBy, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug or sku", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	keepIDs := make([]uuid.UUID, 0, len(p.Variants))
	for _, v := range p.Variants {
		keepIDs = append(keepIDs, v.ID)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM product_variants WHERE product_id = $1 AND NOT (id = ANY($2))`,
		p.ID, keepIDs,
	); err != nil {
		return fmt.Errorf("prune removed variants: %w", err)
	}

	for i := range p.Variants {
		if err := upsertVariant(ctx, tx, &p.Variants[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update product: %w", err)
	}

	return nil
}

// Deactivate soft-deletes a product.
func (r *ProductRepository) Deactivate(ctx context.Context, id, actor uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET is_active = false, updated_by = $1, updated_at = NOW() WHERE id = $2`,
		actor, id,
	)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SlugExists reports whether a product slug is taken.
func (r *ProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1)`, slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product slug: %w", err)
	}
	return exists, nil
}

// CountByCategory returns the number of products referencing a category.
func (r *ProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM products WHERE category_id = $1`, categoryID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count products by category: %w", err)
	}
	return count, nil
}

// --- variants ---

const variantColumns = `id, product_id, name, sku, attributes, additional_price,
	current_stock, is_active, created_at, updated_at`

func (r *ProductRepository) listVariants(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM product_variants
		WHERE product_id = $1
		ORDER BY created_at`, variantColumns)

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	variants := []domain.Variant{}
	for rows.Next() {
		var (
			v         domain.Variant
			attrsJSON []byte
		)
		if err := rows.Scan(
			&v.ID, &v.ProductID, &v.Name, &v.SKU, &attrsJSON, &v.AdditionalPrice,
			&v.CurrentStock, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		if attrsJSON != nil {
			if err := json.Unmarshal(attrsJSON, &v.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal variant attributes: %w", err)
			}
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	return variants, nil
}

func insertVariant(ctx context.Context, tx pgx.Tx, v *domain.Variant) error {
	attrsJSON, err := json.Marshal(v.Attributes)
	if err != nil {
		return fmt.Errorf("marshal variant attributes: %w", err)
	}

	query := `
		INSERT INTO product_variants (id, product_id, name, sku, attributes,
			additional_price, current_stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, query,
		v.ID, v.ProductID, v.Name, v.SKU, attrsJSON,
		v.AdditionalPrice, v.CurrentStock, v.IsActive, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("variant", "sku", v.SKU)
		}
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

// upsertVariant inserts a new variant or updates a surviving one. The
// ON CONFLICT branch never touches current_stock.
func upsertVariant(ctx context.Context, tx pgx.Tx, v *domain.Variant) error {
	attrsJSON, err := json.Marshal(v.Attributes)
	if err != nil {
		return fmt.Errorf("marshal variant attributes: %w", err)
	}

	query := `
		INSERT INTO product_variants (id, product_id, name, sku, attributes,
			additional_price, current_stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, sku = EXCLUDED.sku, attributes = EXCLUDED.attributes,
		    additional_price = EXCLUDED.additional_price, is_active = EXCLUDED.is_active,
		    updated_at = EXCLUDED.updated_at`

	_, err = tx.Exec(ctx, query,
		v.ID, v.ProductID, v.Name, v.SKU, attrsJSON,
		v.AdditionalPrice, v.CurrentStock, v.IsActive, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("variant", "sku", v.SKU)
		}
		return fmt.Errorf("upsert variant: %w", err)
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p          domain.Product
		attrsJSON  []byte
		tagsJSON   []byte
		imagesJSON []byte
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.ShortDescription, &p.CategoryID,
		&p.BasePrice, &p.SellingPrice, &p.CurrentStock, &p.AvgPurchasePrice, &p.LowStockThreshold,
		&p.HasVariants, &attrsJSON, &tagsJSON, &imagesJSON, &p.IsActive, &p.IsFeatured,
		&p.Rating, &p.NumReviews, &p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	if err := unmarshalProductJSON(&p, attrsJSON, tagsJSON, imagesJSON); err != nil {
		return nil, err
	}

	return &p, nil
}

// queryProducts runs a listing query whose final column is count(*) OVER().
func (r *ProductRepository) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	total := 0
	for rows.Next() {
		var (
			p          domain.Product
			attrsJSON  []byte
			tagsJSON   []byte
			imagesJSON []byte
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.ShortDescription, &p.CategoryID,
			&p.BasePrice, &p.SellingPrice, &p.CurrentStock, &p.AvgPurchasePrice, &p.LowStockThreshold,
			&p.HasVariants, &attrsJSON, &tagsJSON, &imagesJSON, &p.IsActive, &p.IsFeatured,
			&p.Rating, &p.NumReviews, &p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		if err := unmarshalProductJSON(&p, attrsJSON, tagsJSON, imagesJSON); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, total, nil
}

func marshalProductJSON(p *domain.Product) (attrs, tags, images []byte, err error) {
	if attrs, err = json.Marshal(p.Attributes); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal attributes: %w", err)
	}
	if tags, err = json.Marshal(p.Tags); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal tags: %w", err)
	}
	if images, err = json.Marshal(p.Images); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal images: %w", err)
	}
	return attrs, tags, images, nil
}

func unmarshalProductJSON(p *domain.Product, attrsJSON, tagsJSON, imagesJSON []byte) error {
	if attrsJSON != nil {
		if err := json.Unmarshal(attrsJSON, &p.Attributes); err != nil {
			return fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	if tagsJSON != nil {
		if err := json.Unmarshal(tagsJSON, &p.Tags); err != nil {
			return fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if imagesJSON != nil {
		if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
			return fmt.Errorf("unmarshal images: %w", err)
		}
	}
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
