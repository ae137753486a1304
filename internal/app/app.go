// Package app wires together all dependencies and runs the storefront server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	cataloghttp "github.com/utafrali/storefront/internal/catalog/handler/http"
	catalogpg "github.com/utafrali/storefront/internal/catalog/repository/postgres"
	catalogredis "github.com/utafrali/storefront/internal/catalog/repository/redis"
	catalogsvc "github.com/utafrali/storefront/internal/catalog/service"
	"github.com/utafrali/storefront/internal/config"
	dashboardhttp "github.com/utafrali/storefront/internal/dashboard/handler/http"
	dashboardpg "github.com/utafrali/storefront/internal/dashboard/repository/postgres"
	dashboardredis "github.com/utafrali/storefront/internal/dashboard/repository/redis"
	dashboardsvc "github.com/utafrali/storefront/internal/dashboard/service"
	inventoryevent "github.com/utafrali/storefront/internal/inventory/event"
	inventoryhttp "github.com/utafrali/storefront/internal/inventory/handler/http"
	inventorypg "github.com/utafrali/storefront/internal/inventory/repository/postgres"
	inventorysvc "github.com/utafrali/storefront/internal/inventory/service"
	orderevent "github.com/utafrali/storefront/internal/order/event"
	orderhttp "github.com/utafrali/storefront/internal/order/handler/http"
	"github.com/utafrali/storefront/internal/order/notify"
	orderpg "github.com/utafrali/storefront/internal/order/repository/postgres"
	ordersvc "github.com/utafrali/storefront/internal/order/service"
	"github.com/utafrali/storefront/internal/server"
	"github.com/utafrali/storefront/internal/user/auth"
	userevent "github.com/utafrali/storefront/internal/user/event"
	userhttp "github.com/utafrali/storefront/internal/user/handler/http"
	userpg "github.com/utafrali/storefront/internal/user/repository/postgres"
	usersvc "github.com/utafrali/storefront/internal/user/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "storefront")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis client.
	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("db", cfg.RedisDB),
	)

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)

	productRepo := catalogpg.NewProductRepository(pool)
	categoryRepo := catalogpg.NewCategoryRepository(pool)
	reviewRepo := catalogpg.NewReviewRepository(pool)
	catalogCache := catalogredis.NewCatalogCache(rdb, cfg.CatalogCacheTTL)

	ledgerRepo := inventorypg.NewLedgerRepository(pool)
	logRepo := inventorypg.NewLogRepository(pool)

	orderRepo := orderpg.NewOrderRepository(pool, ledgerRepo)

	userRepo := userpg.NewUserRepository(pool)
	refreshTokenRepo := userpg.NewRefreshTokenRepository(pool)
	wishlistRepo := userpg.NewWishlistRepository(pool)

	statsRepo := dashboardpg.NewStatsRepository(pool)
	statsCache := dashboardredis.NewStatsCache(rdb, cfg.DashboardCacheTTL)

	productService := catalogsvc.NewProductService(productRepo, categoryRepo, catalogCache, logger)
	categoryService := catalogsvc.NewCategoryService(categoryRepo, productRepo, catalogCache, logger)
	reviewService := catalogsvc.NewReviewService(reviewRepo, productRepo, catalogCache, logger)

	inventoryService := inventorysvc.NewInventoryService(
		ledgerRepo, logRepo, inventoryevent.NewProducer(producer, logger), logger)

	webhookClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("order-webhook"),
		logger,
	)
	notifier := notify.NewWebhookNotifier(webhookClient, cfg.OrderWebhookURL, logger)
	orderService := ordersvc.NewOrderService(
		orderRepo, productRepo, orderevent.NewProducer(producer, logger),
		notifier, ordersvc.DefaultConfig(), logger)

	userService := usersvc.NewUserService(
		userRepo, refreshTokenRepo, wishlistRepo, productRepo,
		jwtManager, userevent.NewProducer(producer, logger), logger)

	dashboardService := dashboardsvc.NewDashboardService(statsRepo, statsCache, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := server.NewRouter(server.Deps{
		Products:   cataloghttp.NewProductHandler(productService, logger),
		Categories: cataloghttp.NewCategoryHandler(categoryService, logger),
		Reviews:    cataloghttp.NewReviewHandler(reviewService, logger),
		Orders:     orderhttp.NewOrderHandler(orderService, logger),
		Inventory:  inventoryhttp.NewInventoryHandler(inventoryService, logger),
		Auth:       userhttp.NewAuthHandler(userService, logger),
		Users:      userhttp.NewUserHandler(userService, logger),
		Wishlist:   userhttp.NewWishlistHandler(userService, logger),
		Dashboard:  dashboardhttp.NewDashboardHandler(dashboardService, logger),

		JWT:    jwtManager,
		Health: healthHandler,
		Logger: logger,

		CORS:              corsCfg,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client.
	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
