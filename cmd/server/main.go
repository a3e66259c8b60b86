package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/tjhart/mercato/internal"
	"github.com/tjhart/mercato/internal/cart"
	"github.com/tjhart/mercato/internal/checkout"
	"github.com/tjhart/mercato/internal/coupon"
	"github.com/tjhart/mercato/internal/handler/storefront"
	"github.com/tjhart/mercato/internal/middleware"
	"github.com/tjhart/mercato/internal/notify"
	"github.com/tjhart/mercato/internal/postgres"
	"github.com/tjhart/mercato/internal/router"
	"github.com/tjhart/mercato/internal/routes"
	"github.com/tjhart/mercato/internal/session"
	"github.com/tjhart/mercato/internal/telemetry"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	notificationQueueSize = 256
	shutdownTimeout       = 15 * time.Second
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := postgres.NewPool(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize Redis session store
	logger.Info("Connecting to Redis...")
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("Redis connection established")

	sessions := session.NewRedisStore(redisClient, cfg.Cart.SessionTTL)

	// Initialize metrics
	businessMetrics := telemetry.NewBusinessMetrics(prometheus.DefaultRegisterer, "mercato")
	httpMetrics := middleware.NewMetrics(prometheus.DefaultRegisterer, "mercato")

	// Initialize repositories
	catalogRepo := postgres.NewCatalogRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	// Initialize cart engine
	couponResolver := coupon.NewResolver(couponRepo, logger)
	cartEngine := cart.NewEngine(sessions, catalogRepo, couponResolver, logger)

	// Initialize order notification pipeline
	var publisher notify.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("Kafka order publisher initialized", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		publisher = notify.NewLogPublisher(logger)
		logger.Info("Log order publisher initialized")
	}

	dispatcher := notify.NewAsyncDispatcher(publisher, notificationQueueSize, logger, businessMetrics)
	dispatcher.Start(ctx)

	// Initialize checkout service
	checkoutService := checkout.NewService(cartEngine, orderRepo, dispatcher, logger, businessMetrics)

	// Build handlers
	secure := cfg.Env == "prod"
	storefrontDeps := routes.StorefrontDeps{
		CartHandler:     storefront.NewCartHandler(cartEngine, catalogRepo, businessMetrics, cfg.Cart.SessionTTL, secure),
		CheckoutHandler: storefront.NewCheckoutHandler(checkoutService, orderRepo),
	}

	// Build router
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		httpMetrics.Middleware,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)

	// Metrics endpoint (should be protected in production via firewall)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		httpMetrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	routes.RegisterStorefrontRoutes(r, storefrontDeps)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Let the notification worker drain its queue
	select {
	case <-dispatcher.Done():
	case <-shutdownCtx.Done():
		logger.Warn("notification dispatcher did not drain before shutdown deadline")
	}

	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
