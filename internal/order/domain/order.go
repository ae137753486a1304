package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
)

// Payment methods.
const (
	PaymentCOD    = "cod"
	PaymentOnline = "online"
	PaymentUPI    = "upi"
	PaymentCard   = "card"
)

// transitions is the authoritative status transition table. Cancelled and
// refunded are terminal.
var transitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCompleted},
	StatusDelivered:  {StatusCompleted, StatusRefunded},
	StatusCompleted:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsValidPaymentMethod reports whether m is a supported payment method.
func IsValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCOD, PaymentOnline, PaymentUPI, PaymentCard:
		return true
	}
	return false
}

// OrderItem is an immutable snapshot of a product at the moment of
// purchase. Later catalog edits never change what the customer bought.
type OrderItem struct {
	ID           uuid.UUID         `json:"id"`
	OrderID      uuid.UUID         `json:"order_id"`
	ProductID    uuid.UUID         `json:"product_id"`
	VariantID    *uuid.UUID        `json:"variant_id,omitempty"`
	Name         string            `json:"name"`
	SKU          string            `json:"sku"`
	VariantInfo  map[string]string `json:"variant_info,omitempty"`
	Qty          int               `json:"qty"`
	PriceAtOrder int64             `json:"price_at_order"`
	LineTotal    int64             `json:"line_total"`
}

// Address is the shipping destination recorded on the order.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// PaymentInfo records how the order is paid. Nothing is charged here; the
// gateway runs out of band and reports back through Status and TxnID.
type PaymentInfo struct {
	Method string     `json:"method"`
	Status string     `json:"status,omitempty"`
	TxnID  string     `json:"txn_id,omitempty"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// Order is a customer purchase moving through the fulfilment workflow.
type Order struct {
	ID              uuid.UUID   `json:"id"`
	OrderNumber     string      `json:"order_number"`
	CustomerID      uuid.UUID   `json:"customer_id"`
	Items           []OrderItem `json:"items"`
	Subtotal        int64       `json:"subtotal"`
	TaxAmount       int64       `json:"tax_amount"`
	ShippingAmount  int64       `json:"shipping_amount"`
	TotalAmount     int64       `json:"total_amount"`
	Status          string      `json:"status"`
	ShippingAddress Address     `json:"shipping_address"`
	Payment         PaymentInfo `json:"payment"`
	CustomerNote    string      `json:"customer_note,omitempty"`
	AdminNote       string      `json:"admin_note,omitempty"`
	CancelReason    string      `json:"cancel_reason,omitempty"`
	StockReserved   bool        `json:"stock_reserved"`
	ProcessedBy     *uuid.UUID  `json:"processed_by,omitempty"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`
	ShippedAt       *time.Time  `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time  `json:"delivered_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// IsTerminal reports whether the order can no longer change status.
func (o *Order) IsTerminal() bool {
	return len(transitions[o.Status]) == 0
}

// MarkStatus moves the order to a new status and stamps the matching
// timestamp field. Callers must have validated the transition.
func (o *Order) MarkStatus(status string, now time.Time) {
	o.Status = status
	switch status {
	case StatusShipped:
		o.ShippedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	case StatusCompleted:
		o.CompletedAt = &now
	case StatusCancelled:
		o.CancelledAt = &now
	}
	o.UpdatedAt = now
}
