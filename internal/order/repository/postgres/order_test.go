package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invdomain "github.com/utafrali/storefront/internal/inventory/domain"
	invpostgres "github.com/utafrali/storefront/internal/inventory/repository/postgres"
	"github.com/utafrali/storefront/internal/order/domain"
	"github.com/utafrali/storefront/internal/order/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// setupOrderRepo wires the repository to a mock pool with the real inventory
// ledger as the stock mover, so reservation SQL runs inside the order
// transaction exactly as in production.
func setupOrderRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	ledger := invpostgres.NewLedgerRepository(mockPool)
	return NewOrderRepository(mockPool, ledger), mockPool
}

var errViolation = errors.New(`ERROR: duplicate key value violates unique constraint "orders_order_number_key" (SQLSTATE 23505)`)

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

var logInsertArgs = []any{
	pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
	pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
	pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
	pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
}

func sampleOrder() *domain.Order {
	now := time.Now().UTC()
	orderID := uuid.New()
	productID := uuid.New()
	return &domain.Order{
		ID:          orderID,
		OrderNumber: "ORD-260831-4821",
		CustomerID:  uuid.New(),
		Items: []domain.OrderItem{{
			ID:           uuid.New(),
			OrderID:      orderID,
			ProductID:    productID,
			Name:         "Walnut Desk",
			SKU:          "FUR-00001-AAAA",
			Qty:          5,
			PriceAtOrder: 20000,
			LineTotal:    100000,
		}},
		Subtotal:        100000,
		TaxAmount:       18000,
		TotalAmount:     118000,
		Status:          domain.StatusPending,
		StockReserved:   true,
		ShippingAddress: domain.Address{Line1: "14 Hill Road", City: "Mumbai", State: "MH", PostalCode: "400050", Country: "IN"},
		Payment:         domain.PaymentInfo{Method: domain.PaymentCOD},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func reservationFor(o *domain.Order) []invdomain.Movement {
	item := o.Items[0]
	return []invdomain.Movement{{
		ProductID: item.ProductID,
		OrderID:   &o.ID,
		Type:      invdomain.MovementOrderReserve,
		Delta:     -item.Qty,
		ActorID:   o.CustomerID,
	}}
}

func TestCreateOrder_ReservationInSameTransaction(t *testing.T) {
	repo, mockPool := setupOrderRepo(t)
	ctx := context.Background()

	order := sampleOrder()
	reservations := reservationFor(order)
	productID := order.Items[0].ProductID

	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO orders").
		WithArgs(anyArgs(21)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("INSERT INTO order_items").
		WithArgs(anyArgs(10)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectQuery("UPDATE products").
		WithArgs(-5, productID).
		WillReturnRows(pgxmock.NewRows([]string{"current_stock"}).AddRow(0))
	mockPool.ExpectExec("INSERT INTO inventory_logs").
		WithArgs(logInsertArgs...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()

	err := repo.Create(ctx, order, reservations)
	require.NoError(t, err)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateOrder_InsufficientStockRollsBackOrder(t *testing.T) {
	repo, mockPool := setupOrderRepo(t)
	ctx := context.Background()

	order := sampleOrder()
	reservations := reservationFor(order)
	productID := order.Items[0].ProductID

	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO orders").
		WithArgs(anyArgs(21)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("INSERT INTO order_items").
		WithArgs(anyArgs(10)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectQuery("UPDATE products").
		WithArgs(-5, productID).
		WillReturnRows(pgxmock.NewRows([]string{"current_stock"}))
	mockPool.ExpectQuery("SELECT current_stock FROM products").
		WithArgs(productID).
		WillReturnRows(pgxmock.NewRows([]string{"current_stock"}).AddRow(3))
	mockPool.ExpectRollback()

	err := repo.Create(ctx, order, reservations)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateOrder_DuplicateOrderNumber(t *testing.T) {
	repo, mockPool := setupOrderRepo(t)
	ctx := context.Background()

	order := sampleOrder()

	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO orders").
		WithArgs(anyArgs(21)...).
		WillReturnError(errViolation)
	mockPool.ExpectRollback()

	err := repo.Create(ctx, order, reservationFor(order))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestUpdateStatus_ReleasesInSameTransaction(t *testing.T) {
	repo, mockPool := setupOrderRepo(t)
	ctx := context.Background()

	order := sampleOrder()
	order.Status = domain.StatusCancelled
	order.StockReserved = false
	productID := order.Items[0].ProductID

	releases := []invdomain.Movement{{
		ProductID: productID,
		OrderID:   &order.ID,
		Type:      invdomain.MovementOrderCancel,
		Delta:     5,
		ActorID:   order.CustomerID,
	}}

	mockPool.ExpectBegin()
	mockPool.ExpectExec("UPDATE orders").
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectQuery("UPDATE products").
		WithArgs(5, productID).
		WillReturnRows(pgxmock.NewRows([]string{"current_stock"}).AddRow(5))
	mockPool.ExpectExec("INSERT INTO inventory_logs").
		WithArgs(logInsertArgs...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()

	err := repo.UpdateStatus(ctx, order, releases)
	require.NoError(t, err)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdateStatus_NotFound(t *testing.T) {
	repo, mockPool := setupOrderRepo(t)

	order := sampleOrder()

	mockPool.ExpectBegin()
	mockPool.ExpectExec("UPDATE orders").
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mockPool.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), order, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListOrders_FilterAndItems(t *testing.T) {
	repo, mockPool := setupOrderRepo(t)
	ctx := context.Background()

	order := sampleOrder()
	address := []byte(`{"line1":"14 Hill Road","city":"Mumbai","state":"MH","postal_code":"400050","country":"IN"}`)
	payment := []byte(`{"method":"cod"}`)

	orderRows := pgxmock.NewRows([]string{
		"id", "order_number", "customer_id", "subtotal", "tax_amount", "shipping_amount",
		"total_amount", "status", "shipping_address", "payment", "customer_note",
		"admin_note", "cancel_reason", "stock_reserved", "processed_by", "cancelled_at",
		"shipped_at", "delivered_at", "completed_at", "created_at", "updated_at", "total",
	}).AddRow(
		order.ID, order.OrderNumber, order.CustomerID, order.Subtotal, order.TaxAmount,
		int64(0), order.TotalAmount, order.Status, address, payment, "",
		"", "", true, nil, nil, nil, nil, nil, order.CreatedAt, order.UpdatedAt, 1,
	)

	mockPool.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs(domain.StatusPending, 20, 0).
		WillReturnRows(orderRows)

	item := order.Items[0]
	mockPool.ExpectQuery("SELECT (.+) FROM order_items WHERE order_id = ANY").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "order_id", "product_id", "variant_id", "name", "sku", "variant_info",
			"qty", "price_at_order", "line_total",
		}).AddRow(
			item.ID, item.OrderID, item.ProductID, nil, item.Name, item.SKU,
			[]byte(`{}`), item.Qty, item.PriceAtOrder, item.LineTotal,
		))

	p := pagination.Params{Page: 1, Limit: 20}
	p.Normalize()
	orders, total, err := repo.List(ctx, repository.OrderFilter{Status: domain.StatusPending}, p)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, "Mumbai", orders[0].ShippingAddress.City)
	assert.Equal(t, domain.PaymentCOD, orders[0].Payment.Method)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, 5, orders[0].Items[0].Qty)
}
