package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	catalogdomain "github.com/utafrali/storefront/internal/catalog/domain"
	catalogrepo "github.com/utafrali/storefront/internal/catalog/repository"
	invdomain "github.com/utafrali/storefront/internal/inventory/domain"
	"github.com/utafrali/storefront/internal/order/domain"
	"github.com/utafrali/storefront/internal/order/event"
	"github.com/utafrali/storefront/internal/order/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// orderNumberAttempts bounds the retry loop on order number collisions.
const orderNumberAttempts = 5

// Config holds the pricing knobs applied to every order.
type Config struct {
	TaxRateBP             int64 // tax rate in basis points
	FreeShippingThreshold int64 // order subtotal above which shipping is free, in cents
	ShippingFlat          int64 // flat shipping charge below the threshold, in cents
}

// DefaultConfig returns the standard pricing configuration: 18% tax, free
// shipping above 50000 cents, 5000 cents flat otherwise.
func DefaultConfig() Config {
	return Config{
		TaxRateBP:             1800,
		FreeShippingThreshold: 50000,
		ShippingFlat:          5000,
	}
}

// Notifier delivers outbound order notifications. Implementations must not
// block order processing; failures are their own concern.
type Notifier interface {
	OrderConfirmation(o *domain.Order)
}

// OrderService implements the business logic for order operations.
type OrderService struct {
	orders   repository.OrderRepository
	products catalogrepo.ProductRepository
	producer *event.Producer
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	products catalogrepo.ProductRepository,
	producer *event.Producer,
	notifier Notifier,
	cfg Config,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		producer: producer,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// OrderItemInput is one requested line in a new order.
type OrderItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
}

// PaymentInput describes how the customer intends to pay.
type PaymentInput struct {
	Method string
	TxnID  string
}

// CreateOrderInput holds the parameters for placing an order.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	Items           []OrderItemInput
	ShippingAddress domain.Address
	Payment         *PaymentInput
	CustomerNote    string
}

// CreateOrder places an order: it snapshots prices, computes totals and
// reserves stock for every item in one transaction with the order insert.
// An order number collision regenerates the number and retries.
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}

	payment := domain.PaymentInfo{Method: domain.PaymentCOD}
	if input.Payment != nil {
		if !domain.IsValidPaymentMethod(input.Payment.Method) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported payment method %q", input.Payment.Method))
		}
		payment.Method = input.Payment.Method
		payment.TxnID = input.Payment.TxnID
	}

	now := time.Now().UTC()
	orderID := uuid.New()

	items := make([]domain.OrderItem, 0, len(input.Items))
	reservations := make([]invdomain.Movement, 0, len(input.Items))
	var subtotal int64

	for _, line := range input.Items {
		if line.Qty <= 0 {
			return nil, apperrors.InvalidInput("item quantity must be positive")
		}

		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.InvalidInput(fmt.Sprintf("product %s is unavailable", line.ProductID))
			}
			return nil, fmt.Errorf("load product for order: %w", err)
		}
		if !product.IsActive {
			return nil, apperrors.InvalidInput(fmt.Sprintf("product %q is unavailable", product.Name))
		}

		item, available, err := snapshotItem(product, line)
		if err != nil {
			return nil, err
		}
		if available < line.Qty {
			return nil, apperrors.InsufficientStock(available, line.Qty)
		}
		item.ID = uuid.New()
		item.OrderID = orderID
		subtotal += item.LineTotal
		items = append(items, item)

		reservations = append(reservations, invdomain.Movement{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			OrderID:   &orderID,
			Type:      invdomain.MovementOrderReserve,
			Delta:     -line.Qty,
			Note:      "Reserved for order",
			ActorID:   input.CustomerID,
		})
	}

	tax := roundBasisPoints(subtotal, s.cfg.TaxRateBP)
	shipping := s.cfg.ShippingFlat
	if subtotal > s.cfg.FreeShippingThreshold {
		shipping = 0
	}

	order := &domain.Order{
		ID:              orderID,
		CustomerID:      input.CustomerID,
		Items:           items,
		Subtotal:        subtotal,
		TaxAmount:       tax,
		ShippingAmount:  shipping,
		TotalAmount:     subtotal + tax + shipping,
		Status:          domain.StatusPending,
		ShippingAddress: input.ShippingAddress,
		Payment:         payment,
		CustomerNote:    input.CustomerNote,
		StockReserved:   true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = generateOrderNumber(now)
		err = s.orders.Create(ctx, order, reservations)
		if err == nil || !errors.Is(err, apperrors.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_number", order.OrderNumber),
		slog.String("customer_id", order.CustomerID.String()),
		slog.Int64("total_amount", order.TotalAmount),
		slog.Int("items", len(order.Items)),
	)

	if s.producer != nil {
		if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
			s.logger.WarnContext(ctx, "failed to publish order.created event",
				slog.String("order_number", order.OrderNumber),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.notifier != nil {
		s.notifier.OrderConfirmation(order)
	}

	return order, nil
}

// GetOrder returns an order. Customers see only their own orders; staff and
// admin see all.
func (s *OrderService) GetOrder(ctx context.Context, id, actorID uuid.UUID, actorRole string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if !isStaff(actorRole) && order.CustomerID != actorID {
		return nil, apperrors.Forbidden("you may only view your own orders")
	}

	return order, nil
}

// ListOrders returns all orders matching the filter. Staff and admin only;
// the router enforces the role.
func (s *OrderService) ListOrders(ctx context.Context, status string, p pagination.Params) (*pagination.Result[domain.Order], error) {
	if status != "" && !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status %q", status))
	}
	p.Normalize()

	orders, total, err := s.orders.List(ctx, repository.OrderFilter{Status: status}, p)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	result := pagination.NewResult(orders, total, p)
	return &result, nil
}

// ListMyOrders returns the customer's own orders.
func (s *OrderService) ListMyOrders(ctx context.Context, customerID uuid.UUID, status string, p pagination.Params) (*pagination.Result[domain.Order], error) {
	if status != "" && !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status %q", status))
	}
	p.Normalize()

	orders, total, err := s.orders.List(ctx, repository.OrderFilter{CustomerID: &customerID, Status: status}, p)
	if err != nil {
		return nil, fmt.Errorf("list customer orders: %w", err)
	}

	result := pagination.NewResult(orders, total, p)
	return &result, nil
}

// UpdateStatusInput holds the parameters for a staff status change.
type UpdateStatusInput struct {
	NewStatus    string
	ActorID      uuid.UUID
	AdminNote    string
	CancelReason string
}

// UpdateOrderStatus moves an order through the workflow. The transition
// table is authoritative; moving to cancelled releases the reservation in
// the same transaction as the status write.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, input *UpdateStatusInput) (*domain.Order, error) {
	if !domain.IsValidStatus(input.NewStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status %q", input.NewStatus))
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	if !domain.CanTransition(order.Status, input.NewStatus) {
		return nil, apperrors.InvalidState(
			fmt.Sprintf("cannot transition order from %s to %s", order.Status, input.NewStatus))
	}

	oldStatus := order.Status
	now := time.Now().UTC()
	order.ProcessedBy = &input.ActorID
	if input.AdminNote != "" {
		order.AdminNote = input.AdminNote
	}

	var releases []invdomain.Movement
	if input.NewStatus == domain.StatusCancelled {
		reason := input.CancelReason
		if reason == "" {
			reason = "Cancelled by staff"
		}
		releases = s.prepareRelease(order, reason, input.ActorID, now)
	}
	order.MarkStatus(input.NewStatus, now)

	if err := s.orders.UpdateStatus(ctx, order, releases); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_number", order.OrderNumber),
		slog.String("old_status", oldStatus),
		slog.String("new_status", order.Status),
		slog.String("processed_by", input.ActorID.String()),
	)

	s.publishStatusChange(ctx, order, oldStatus)

	return order, nil
}

// CancelOrder is the customer cancellation path. Only the order's owner may
// cancel, and only while the order is still pending.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, customerID uuid.UUID, reason string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for cancel: %w", err)
	}

	if order.CustomerID != customerID {
		return nil, apperrors.Forbidden("you may only cancel your own orders")
	}
	if order.Status != domain.StatusPending {
		return nil, apperrors.InvalidState(
			fmt.Sprintf("order in status %s can no longer be cancelled", order.Status))
	}

	if reason == "" {
		reason = "Cancelled by customer"
	}

	oldStatus := order.Status
	now := time.Now().UTC()
	releases := s.prepareRelease(order, reason, customerID, now)
	order.MarkStatus(domain.StatusCancelled, now)

	if err := s.orders.UpdateStatus(ctx, order, releases); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	s.logger.InfoContext(ctx, "order cancelled by customer",
		slog.String("order_number", order.OrderNumber),
		slog.String("customer_id", customerID.String()),
		slog.String("reason", reason),
	)

	s.publishStatusChange(ctx, order, oldStatus)

	return order, nil
}

// prepareRelease builds the order-cancel movements for every reserved item
// and marks the order cancelled-side fields. Both cancellation routes go
// through here so variants always restock on the correct row and every
// release leaves a ledger entry.
func (s *OrderService) prepareRelease(order *domain.Order, reason string, actorID uuid.UUID, now time.Time) []invdomain.Movement {
	order.CancelReason = reason

	if !order.StockReserved {
		return nil
	}
	order.StockReserved = false

	releases := make([]invdomain.Movement, 0, len(order.Items))
	for _, item := range order.Items {
		releases = append(releases, invdomain.Movement{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			OrderID:   &order.ID,
			Type:      invdomain.MovementOrderCancel,
			Delta:     item.Qty,
			Note:      "Released on order cancellation",
			ActorID:   actorID,
		})
	}
	return releases
}

func (s *OrderService) publishStatusChange(ctx context.Context, order *domain.Order, oldStatus string) {
	if s.producer == nil {
		return
	}

	var err error
	if order.Status == domain.StatusCancelled {
		err = s.producer.PublishOrderCancelled(ctx, order)
	} else {
		err = s.producer.PublishStatusChanged(ctx, order, oldStatus)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish order status event",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	}
}

// snapshotItem freezes the product (or variant) into an order line and
// reports the stock available for it.
func snapshotItem(product *catalogdomain.Product, line OrderItemInput) (domain.OrderItem, int, error) {
	item := domain.OrderItem{
		ProductID: line.ProductID,
		Name:      product.Name,
		SKU:       product.SKU,
		Qty:       line.Qty,
	}

	if line.VariantID == nil {
		item.PriceAtOrder = product.SellingPrice
		item.LineTotal = product.SellingPrice * int64(line.Qty)
		return item, product.CurrentStock, nil
	}

	for i := range product.Variants {
		v := &product.Variants[i]
		if v.ID != *line.VariantID {
			continue
		}
		if !v.IsActive {
			return domain.OrderItem{}, 0, apperrors.InvalidInput(
				fmt.Sprintf("variant %q of product %q is unavailable", v.Name, product.Name))
		}
		item.VariantID = line.VariantID
		item.Name = product.Name + " / " + v.Name
		item.SKU = v.SKU
		item.VariantInfo = v.Attributes
		item.PriceAtOrder = v.UnitPrice(product.BasePrice)
		item.LineTotal = item.PriceAtOrder * int64(line.Qty)
		return item, v.CurrentStock, nil
	}

	return domain.OrderItem{}, 0, apperrors.InvalidInput(
		fmt.Sprintf("variant %s of product %q is unavailable", line.VariantID, product.Name))
}

// generateOrderNumber produces ORD-YYMMDD-NNNN. Uniqueness comes from the
// database index; collisions retry with a fresh suffix.
func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("060102"), rand.IntN(10000))
}

// roundBasisPoints applies a basis-point rate with round-half-up.
func roundBasisPoints(amount, rateBP int64) int64 {
	return (amount*rateBP + 5000) / 10000
}

func isStaff(role string) bool {
	return role == "staff" || role == "admin"
}
