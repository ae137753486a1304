package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stats is the headline figure block for the admin dashboard. Monetary
// amounts are in cents.
type Stats struct {
	TotalSales          int64 `json:"total_sales"`
	TodaySales          int64 `json:"today_sales"`
	TodayOrders         int   `json:"today_orders"`
	MonthlySales        int64 `json:"monthly_sales"`
	TotalOrders         int   `json:"total_orders"`
	PendingOrders       int   `json:"pending_orders"`
	TotalInventoryValue int64 `json:"total_inventory_value"`
	LowStockCount       int   `json:"low_stock_count"`
	OutOfStockCount     int   `json:"out_of_stock_count"`
	TotalProducts       int   `json:"total_products"`
	TotalCustomers      int   `json:"total_customers"`
}

// TopProduct is one row of the best-sellers table, aggregated from
// completed and delivered orders.
type TopProduct struct {
	ProductID    uuid.UUID `json:"product_id"`
	Name         string    `json:"name"`
	TotalQty     int       `json:"total_qty"`
	TotalRevenue int64     `json:"total_revenue"`
}

// DailySales is one point on the sales chart.
type DailySales struct {
	Date   string `json:"date"`
	Sales  int64  `json:"sales"`
	Orders int    `json:"orders"`
}

// RecentOrder is a compact order row with the customer joined in.
type RecentOrder struct {
	ID            uuid.UUID `json:"id"`
	OrderNumber   string    `json:"order_number"`
	Status        string    `json:"status"`
	TotalAmount   int64     `json:"total_amount"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CreatedAt     time.Time `json:"created_at"`
}
