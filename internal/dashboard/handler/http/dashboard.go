package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/storefront/internal/dashboard/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// DashboardHandler handles the staff-facing reporting endpoints.
type DashboardHandler struct {
	service *service.DashboardService
	logger  *slog.Logger
}

// NewDashboardHandler creates a new dashboard HTTP handler.
func NewDashboardHandler(svc *service.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: svc,
		logger:  logger,
	}
}

// Stats handles GET /api/v1/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, stats)
}

// TopProducts handles GET /api/v1/dashboard/top-products
func (h *DashboardHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.TopProducts(r.Context(), queryInt(r, "limit"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]any{"products": products})
}

// SalesChart handles GET /api/v1/dashboard/sales-chart
func (h *DashboardHandler) SalesChart(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.SalesChart(r.Context(), queryInt(r, "days"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]any{"sales_data": points})
}

// RecentOrders handles GET /api/v1/dashboard/recent-orders
func (h *DashboardHandler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.RecentOrders(r.Context(), queryInt(r, "limit"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]any{"orders": orders})
}

// queryInt parses an integer query parameter, returning 0 when absent or
// malformed so the service applies its default.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
