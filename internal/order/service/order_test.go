package service

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/utafrali/storefront/internal/catalog/domain"
	catalogrepo "github.com/utafrali/storefront/internal/catalog/repository"
	invdomain "github.com/utafrali/storefront/internal/inventory/domain"
	"github.com/utafrali/storefront/internal/order/domain"
	"github.com/utafrali/storefront/internal/order/event"
	"github.com/utafrali/storefront/internal/order/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order, reservations []invdomain.Movement) error {
	args := m.Called(ctx, order, reservations)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter, p pagination.Params) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter, p)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, order *domain.Order, releases []invdomain.Movement) error {
	args := m.Called(ctx, order, releases)
	return args.Error(0)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *catalogdomain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalogdomain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogdomain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*catalogdomain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogdomain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter catalogrepo.ProductFilter, p pagination.Params) ([]catalogdomain.Product, int, error) {
	args := m.Called(ctx, filter, p)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]catalogdomain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) ListFeatured(ctx context.Context, limit int) ([]catalogdomain.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalogdomain.Product), args.Error(1)
}

func (m *mockProductRepository) ListLowStock(ctx context.Context, p pagination.Params) ([]catalogdomain.Product, int, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]catalogdomain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, product *catalogdomain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) Deactivate(ctx context.Context, id, actor uuid.UUID) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *mockProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	args := m.Called(ctx, categoryID)
	return args.Int(0), args.Error(1)
}

// ============================================================================
// Helpers
// ============================================================================

func newTestService(orders *mockOrderRepository, products *mockProductRepository) *OrderService {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
	return NewOrderService(orders, products, producer, nil, DefaultConfig(), logger)
}

func activeProduct(id uuid.UUID, price int64, stock int) *catalogdomain.Product {
	return &catalogdomain.Product{
		ID:           id,
		Name:         "Walnut Desk",
		SKU:          "FUR-00001-AAAA",
		SellingPrice: price,
		CurrentStock: stock,
		IsActive:     true,
	}
}

// ============================================================================
// CreateOrder
// ============================================================================

func TestCreateOrder_ReservesFullStock(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	productID := uuid.New()
	customerID := uuid.New()
	products.On("GetByID", ctx, productID).Return(activeProduct(productID, 20000, 5), nil)

	orders.On("Create", ctx, mock.AnythingOfType("*domain.Order"),
		mock.MatchedBy(func(movements []invdomain.Movement) bool {
			return len(movements) == 1 &&
				movements[0].Type == invdomain.MovementOrderReserve &&
				movements[0].Delta == -5 &&
				movements[0].ProductID == productID &&
				movements[0].VariantID == nil &&
				movements[0].OrderID != nil
		})).Return(nil)

	order, err := svc.CreateOrder(ctx, &CreateOrderInput{
		CustomerID: customerID,
		Items:      []OrderItemInput{{ProductID: productID, Qty: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.True(t, order.StockReserved)
	assert.Equal(t, int64(100000), order.Subtotal)
	assert.Equal(t, int64(18000), order.TaxAmount)
	assert.Equal(t, int64(0), order.ShippingAmount, "free shipping above threshold")
	assert.Equal(t, int64(118000), order.TotalAmount)
	assert.Equal(t, domain.PaymentCOD, order.Payment.Method)
	orders.AssertExpectations(t)
}

func TestCreateOrder_ChargesFlatShippingBelowThreshold(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	productID := uuid.New()
	products.On("GetByID", ctx, productID).Return(activeProduct(productID, 1000, 10), nil)
	orders.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)

	order, err := svc.CreateOrder(ctx, &CreateOrderInput{
		CustomerID: uuid.New(),
		Items:      []OrderItemInput{{ProductID: productID, Qty: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), order.Subtotal)
	assert.Equal(t, int64(180), order.TaxAmount)
	assert.Equal(t, int64(5000), order.ShippingAmount)
	assert.Equal(t, int64(6180), order.TotalAmount)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)

	order, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		CustomerID: uuid.New(),
	})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	productID := uuid.New()
	products.On("GetByID", ctx, productID).Return(activeProduct(productID, 1000, 5), nil)

	order, err := svc.CreateOrder(ctx, &CreateOrderInput{
		CustomerID: uuid.New(),
		Items:      []OrderItemInput{{ProductID: productID, Qty: 6}},
	})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "available 5")
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_VariantPricingAndTarget(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	productID := uuid.New()
	variantID := uuid.New()
	product := activeProduct(productID, 9999, 0)
	product.BasePrice = 1000
	product.HasVariants = true
	product.Variants = []catalogdomain.Variant{{
		ID:              variantID,
		ProductID:       productID,
		Name:            "Red / L",
		SKU:             "FUR-00001-AAAA-RED-L",
		Attributes:      map[string]string{"color": "Red", "size": "L"},
		AdditionalPrice: 200,
		CurrentStock:    4,
		IsActive:        true,
	}}
	products.On("GetByID", ctx, productID).Return(product, nil)

	orders.On("Create", ctx, mock.MatchedBy(func(o *domain.Order) bool {
		return len(o.Items) == 1 &&
			o.Items[0].PriceAtOrder == 1200 &&
			o.Items[0].SKU == "FUR-00001-AAAA-RED-L" &&
			o.Items[0].VariantInfo["color"] == "Red"
	}), mock.MatchedBy(func(movements []invdomain.Movement) bool {
		return len(movements) == 1 &&
			movements[0].VariantID != nil && *movements[0].VariantID == variantID &&
			movements[0].Delta == -2
	})).Return(nil)

	order, err := svc.CreateOrder(ctx, &CreateOrderInput{
		CustomerID: uuid.New(),
		Items:      []OrderItemInput{{ProductID: productID, VariantID: &variantID, Qty: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2400), order.Subtotal)
}

func TestCreateOrder_UnknownVariant(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	productID := uuid.New()
	missing := uuid.New()
	products.On("GetByID", ctx, productID).Return(activeProduct(productID, 1000, 5), nil)

	order, err := svc.CreateOrder(ctx, &CreateOrderInput{
		CustomerID: uuid.New(),
		Items:      []OrderItemInput{{ProductID: productID, VariantID: &missing, Qty: 1}},
	})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateOrder_InactiveProduct(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	productID := uuid.New()
	product := activeProduct(productID, 1000, 5)
	product.IsActive = false
	products.On("GetByID", ctx, productID).Return(product, nil)

	order, err := svc.CreateOrder(ctx, &CreateOrderInput{
		CustomerID: uuid.New(),
		Items:      []OrderItemInput{{ProductID: productID, Qty: 1}},
	})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateOrder_RetriesOnOrderNumberConflict(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	productID := uuid.New()
	products.On("GetByID", ctx, productID).Return(activeProduct(productID, 1000, 5), nil)

	conflict := apperrors.AlreadyExists("order", "number", "ORD-260831-0001")
	orders.On("Create", ctx, mock.Anything, mock.Anything).Return(conflict).Twice()
	orders.On("Create", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	order, err := svc.CreateOrder(ctx, &CreateOrderInput{
		CustomerID: uuid.New(),
		Items:      []OrderItemInput{{ProductID: productID, Qty: 1}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, order.OrderNumber)
	orders.AssertNumberOfCalls(t, "Create", 3)
}

func TestCreateOrder_RejectsUnknownPaymentMethod(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)

	order, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		CustomerID: uuid.New(),
		Items:      []OrderItemInput{{ProductID: uuid.New(), Qty: 1}},
		Payment:    &PaymentInput{Method: "barter"},
	})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^ORD-260831-\d{4}$`)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, pattern, generateOrderNumber(now))
	}
}

// ============================================================================
// Status updates
// ============================================================================

func pendingOrder(id, customerID uuid.UUID) *domain.Order {
	productID := uuid.New()
	return &domain.Order{
		ID:          id,
		OrderNumber: "ORD-260831-1234",
		CustomerID:  customerID,
		Status:      domain.StatusPending,
		Items: []domain.OrderItem{{
			ID:        uuid.New(),
			OrderID:   id,
			ProductID: productID,
			Qty:       3,
		}},
		StockReserved: true,
	}
}

func TestUpdateOrderStatus_AllowedTransition(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	orderID := uuid.New()
	actorID := uuid.New()
	orders.On("GetByID", ctx, orderID).Return(pendingOrder(orderID, uuid.New()), nil)
	orders.On("UpdateStatus", ctx, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Status == domain.StatusConfirmed &&
			o.ProcessedBy != nil && *o.ProcessedBy == actorID &&
			o.StockReserved
	}), mock.MatchedBy(func(releases []invdomain.Movement) bool {
		return len(releases) == 0
	})).Return(nil)

	order, err := svc.UpdateOrderStatus(ctx, orderID, &UpdateStatusInput{
		NewStatus: domain.StatusConfirmed,
		ActorID:   actorID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, order.Status)
	orders.AssertExpectations(t)
}

func TestUpdateOrderStatus_DisallowedTransition(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	orderID := uuid.New()
	orders.On("GetByID", ctx, orderID).Return(pendingOrder(orderID, uuid.New()), nil)

	order, err := svc.UpdateOrderStatus(ctx, orderID, &UpdateStatusInput{
		NewStatus: domain.StatusDelivered,
		ActorID:   uuid.New(),
	})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateOrderStatus_CancelReleasesReservation(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	orderID := uuid.New()
	existing := pendingOrder(orderID, uuid.New())
	itemProductID := existing.Items[0].ProductID
	orders.On("GetByID", ctx, orderID).Return(existing, nil)
	orders.On("UpdateStatus", ctx, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Status == domain.StatusCancelled &&
			!o.StockReserved &&
			o.CancelReason == "damaged in warehouse" &&
			o.CancelledAt != nil
	}), mock.MatchedBy(func(releases []invdomain.Movement) bool {
		return len(releases) == 1 &&
			releases[0].Type == invdomain.MovementOrderCancel &&
			releases[0].Delta == 3 &&
			releases[0].ProductID == itemProductID
	})).Return(nil)

	order, err := svc.UpdateOrderStatus(ctx, orderID, &UpdateStatusInput{
		NewStatus:    domain.StatusCancelled,
		ActorID:      uuid.New(),
		CancelReason: "damaged in warehouse",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, order.Status)
}

// ============================================================================
// Customer cancellation
// ============================================================================

func TestCancelOrder_OwnerPending(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	orderID := uuid.New()
	customerID := uuid.New()
	orders.On("GetByID", ctx, orderID).Return(pendingOrder(orderID, customerID), nil)
	orders.On("UpdateStatus", ctx, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Status == domain.StatusCancelled && !o.StockReserved &&
			o.CancelReason == "Cancelled by customer"
	}), mock.MatchedBy(func(releases []invdomain.Movement) bool {
		return len(releases) == 1 && releases[0].Delta == 3
	})).Return(nil)

	order, err := svc.CancelOrder(ctx, orderID, customerID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, order.Status)
}

func TestCancelOrder_NotOwner(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	orderID := uuid.New()
	orders.On("GetByID", ctx, orderID).Return(pendingOrder(orderID, uuid.New()), nil)

	order, err := svc.CancelOrder(ctx, orderID, uuid.New(), "changed my mind")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOrder_NonPending(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	orderID := uuid.New()
	customerID := uuid.New()
	shipped := pendingOrder(orderID, customerID)
	shipped.Status = domain.StatusShipped
	orders.On("GetByID", ctx, orderID).Return(shipped, nil)

	order, err := svc.CancelOrder(ctx, orderID, customerID, "")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// Reads
// ============================================================================

func TestGetOrder_CustomerSeesOwnOnly(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	orderID := uuid.New()
	ownerID := uuid.New()
	orders.On("GetByID", ctx, orderID).Return(pendingOrder(orderID, ownerID), nil)

	_, err := svc.GetOrder(ctx, orderID, ownerID, "customer")
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, orderID, uuid.New(), "customer")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.GetOrder(ctx, orderID, uuid.New(), "staff")
	require.NoError(t, err)
}

func TestListOrders_InvalidStatusFilter(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)

	result, err := svc.ListOrders(context.Background(), "teleported", pagination.Params{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestListMyOrders_ScopedToCustomer(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestService(orders, products)
	ctx := context.Background()

	customerID := uuid.New()
	orders.On("List", ctx, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.CustomerID != nil && *f.CustomerID == customerID && f.Status == ""
	}), pagination.Params{Page: 1, Limit: 20}).
		Return([]domain.Order{}, 0, nil)

	result, err := svc.ListMyOrders(ctx, customerID, "", pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Pagination.Total)
	orders.AssertExpectations(t)
}
