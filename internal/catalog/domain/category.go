package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category represents a product category with optional nesting.
type Category struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	ParentID    *uuid.UUID  `json:"parent_id,omitempty"`
	SortOrder   int         `json:"sort_order"`
	IsActive    bool        `json:"is_active"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Children    []*Category `json:"children,omitempty"`
}
