package repository

import (
	"context"

	"github.com/google/uuid"

	invdomain "github.com/utafrali/storefront/internal/inventory/domain"
	"github.com/utafrali/storefront/internal/order/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// OrderFilter narrows order list queries.
type OrderFilter struct {
	CustomerID *uuid.UUID
	Status     string
}

// OrderRepository defines persistence for orders. Create and UpdateStatus
// accept stock movements that must land in the same transaction as the
// order writes, so a failed reservation or release rolls everything back.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order, reservations []invdomain.Movement) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter, p pagination.Params) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, order *domain.Order, releases []invdomain.Movement) error
}
