package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/catalog/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// categoryColumns is the standard SELECT column list for categories.
const categoryColumns = `id, name, slug, parent_id, sort_order, is_active, description,
	created_at, updated_at`

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create inserts a new category into the database.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, parent_id, sort_order, is_active, description,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Slug, c.ParentID, c.SortOrder, c.IsActive, c.Description,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "slug", c.Slug)
		}
		return fmt.Errorf("insert category: %w", err)
	}

	return nil
}

// GetByID retrieves a category by its unique identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE id = $1`, categoryColumns)
	return r.scanCategory(ctx, query, id)
}

// GetBySlug retrieves a category by its URL-friendly slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE slug = $1`, categoryColumns)
	return r.scanCategory(ctx, query, slug)
}

// Update modifies an existing category in the database.
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE categories
		SET name = $1, slug = $2, parent_id = $3, sort_order = $4, is_active = $5,
		    description = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.pool.Exec(ctx, query,
		c.Name, c.Slug, c.ParentID, c.SortOrder, c.IsActive,
		c.Description, c.UpdatedAt, c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "slug", c.Slug)
		}
		return fmt.Errorf("update category: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a category, re-parenting its children to its own parent
// so the tree stays connected.
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get category for delete: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE categories SET parent_id = $1 WHERE parent_id = $2`,
		current.ParentID, id,
	)
	if err != nil {
		return fmt.Errorf("reparent child categories: %w", err)
	}

	ct, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// ListAll returns all active categories as a flat list ordered by sort_order and name.
func (r *CategoryRepository) ListAll(ctx context.Context) ([]domain.Category, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM categories
		WHERE is_active = true
		ORDER BY sort_order, name`, categoryColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := scanCategoryRow(rows, &c); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, nil
}

// ListTree returns all active categories assembled into a nested tree.
// Orphans (parent inactive or missing) surface as roots.
func (r *CategoryRepository) ListTree(ctx context.Context) ([]*domain.Category, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM categories
		WHERE is_active = true
		ORDER BY sort_order, name`, categoryColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories for tree: %w", err)
	}
	defer rows.Close()

	var all []*domain.Category
	byID := make(map[uuid.UUID]*domain.Category)

	for rows.Next() {
		c := &domain.Category{}
		if err := scanCategoryRow(rows, c); err != nil {
			return nil, fmt.Errorf("scan category row for tree: %w", err)
		}
		c.Children = []*domain.Category{}
		all = append(all, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows for tree: %w", err)
	}

	roots := []*domain.Category{}
	for _, c := range all {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if parent, ok := byID[*c.ParentID]; ok {
			parent.Children = append(parent.Children, c)
		} else {
			roots = append(roots, c)
		}
	}

	return roots, nil
}

// SlugExists reports whether a category slug is taken.
func (r *CategoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1)`, slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category slug: %w", err)
	}
	return exists, nil
}

func (r *CategoryRepository) scanCategory(ctx context.Context, query string, arg any) (*domain.Category, error) {
	var c domain.Category

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.SortOrder, &c.IsActive, &c.Description,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}

	return &c, nil
}

func scanCategoryRow(rows pgx.Rows, c *domain.Category) error {
	return rows.Scan(
		&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.SortOrder, &c.IsActive, &c.Description,
		&c.CreatedAt, &c.UpdatedAt,
	)
}
