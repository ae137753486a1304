// Package server assembles the HTTP routing surface for the storefront API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cataloghttp "github.com/utafrali/storefront/internal/catalog/handler/http"
	dashboardhttp "github.com/utafrali/storefront/internal/dashboard/handler/http"
	inventoryhttp "github.com/utafrali/storefront/internal/inventory/handler/http"
	orderhttp "github.com/utafrali/storefront/internal/order/handler/http"
	"github.com/utafrali/storefront/internal/user/auth"
	userdomain "github.com/utafrali/storefront/internal/user/domain"
	userhttp "github.com/utafrali/storefront/internal/user/handler/http"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Deps bundles everything the router needs to register the full API surface.
type Deps struct {
	Products   *cataloghttp.ProductHandler
	Categories *cataloghttp.CategoryHandler
	Reviews    *cataloghttp.ReviewHandler
	Orders     *orderhttp.OrderHandler
	Inventory  *inventoryhttp.InventoryHandler
	Auth       *userhttp.AuthHandler
	Users      *userhttp.UserHandler
	Wishlist   *userhttp.WishlistHandler
	Dashboard  *dashboardhttp.DashboardHandler

	JWT    *auth.JWTManager
	Health *health.Handler
	Logger *slog.Logger

	CORS              middleware.CORSConfig
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(d.CORS))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(d.Logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(d.Logger))

	// Health check endpoints
	r.Get("/health/live", d.Health.LivenessHandler())
	r.Get("/health/ready", d.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, d.PprofAllowedCIDRs, d.Logger)

	// Token validator that bridges to the internal JWTManager.
	validateToken := func(token string) (*middleware.Claims, error) {
		claims, err := d.JWT.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(ContentTypeJSON)

		// Public endpoints.
		api.Group(func(r chi.Router) {
			r.Post("/auth/register", d.Auth.Register)
			r.Post("/auth/login", d.Auth.Login)
			r.Post("/auth/refresh", d.Auth.Refresh)
		})

		// Public catalog reads, cacheable by clients and CDNs.
		api.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(60))

			r.Get("/products", d.Products.List)
			r.Get("/products/featured", d.Products.Featured)
			r.Get("/products/{idOrSlug}", d.Products.Get)
			r.Get("/products/{productId}/reviews", d.Reviews.List)

			r.Get("/categories", d.Categories.List)
			r.Get("/categories/tree", d.Categories.Tree)
			r.Get("/categories/{idOrSlug}", d.Categories.Get)
		})

		// Authenticated endpoints.
		api.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validateToken))

			r.Get("/auth/me", d.Auth.Me)

			r.Post("/orders", d.Orders.Create)
			r.Get("/orders/my-orders", d.Orders.ListMine)
			r.Get("/orders/{id}", d.Orders.Get)
			r.Put("/orders/{id}/cancel", d.Orders.Cancel)

			r.Post("/products/{productId}/reviews", d.Reviews.Create)
			r.Delete("/reviews/{id}", d.Reviews.Delete)

			r.Get("/wishlist", d.Wishlist.List)
			r.Post("/wishlist", d.Wishlist.Add)
			r.Delete("/wishlist/{productId}", d.Wishlist.Remove)
		})

		// Back-office endpoints for staff and admins.
		api.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validateToken))
			r.Use(middleware.RequireRole(userdomain.RoleStaff, userdomain.RoleAdmin))

			r.Post("/products", d.Products.Create)
			r.Get("/products/low-stock", d.Products.LowStock)
			r.Put("/products/{id}", d.Products.Update)
			r.Delete("/products/{id}", d.Products.Delete)

			r.Post("/categories", d.Categories.Create)
			r.Put("/categories/{id}", d.Categories.Update)
			r.Delete("/categories/{id}", d.Categories.Delete)

			r.Get("/orders", d.Orders.List)
			r.Put("/orders/{id}/status", d.Orders.UpdateStatus)

			r.Post("/inventory/stock-in", d.Inventory.StockIn)
			r.Post("/inventory/stock-out", d.Inventory.StockOut)
			r.Get("/inventory/summary", d.Inventory.Summary)
			r.Get("/inventory/logs", d.Inventory.ListLogs)
			r.Get("/inventory/logs/{productId}", d.Inventory.ListProductLogs)
			r.Get("/inventory/{productId}", d.Inventory.GetStockInfo)

			r.Get("/dashboard/stats", d.Dashboard.Stats)
			r.Get("/dashboard/top-products", d.Dashboard.TopProducts)
			r.Get("/dashboard/sales-chart", d.Dashboard.SalesChart)
			r.Get("/dashboard/recent-orders", d.Dashboard.RecentOrders)
		})

		// Admin-only endpoints.
		api.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validateToken))
			r.Use(middleware.RequireRole(userdomain.RoleAdmin))

			r.Post("/inventory/adjust", d.Inventory.AdjustStock)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", d.Users.List)
				r.Post("/", d.Users.Create)
				r.Get("/{id}", d.Users.Get)
				r.Put("/{id}", d.Users.Update)
				r.Delete("/{id}", d.Users.Delete)
			})
		})
	})

	return r
}
