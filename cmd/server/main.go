package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/CerenTurker/E-Commerce-API/internal/cache"
	h "github.com/CerenTurker/E-Commerce-API/internal/http"
	"github.com/CerenTurker/E-Commerce-API/internal/payment"
	"github.com/CerenTurker/E-Commerce-API/internal/repository"
	"github.com/CerenTurker/E-Commerce-API/internal/service"
	"github.com/CerenTurker/E-Commerce-API/pkg/logging"
	"github.com/CerenTurker/E-Commerce-API/pkg/metrics"
)

type Config struct {
	HTTPPort           string
	LogLevel           string
	RedisAddr          string
	RedisPassword      string
	PaymentSuccessRate float64
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	DB                 repository.Credentials
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		PaymentSuccessRate: getEnvFloat("PAYMENT_SUCCESS_RATE", 1.0),
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		DB: repository.Credentials{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "storefront"),
			Password:          getEnv("DB_PASSWORD", "storefront"),
			DBName:            getEnv("DB_NAME", "storefront"),
			MigrationsDirPath: getEnv("MIGRATIONS_DIR", "./migrations"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	logger, err := logging.New("storefront", cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	store, err := repository.NewPostgresStore(&cfg.DB, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer store.Close()

	if err := store.RunMigrations(&cfg.DB); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	cartCache := cache.NewRedisCache(redisClient)

	// Sandbox gateway: the only place randomness enters; the success
	// rate is a deployment knob for load drills.
	sandbox := payment.NewSandbox(func(uuid.UUID, decimal.Decimal) bool {
		return rand.Float64() < cfg.PaymentSuccessRate
	})
	gateway := payment.NewBreakerGateway(sandbox)

	cartService := service.NewCartService(store, cartCache, logger)
	checkoutService := service.NewCheckoutService(store, cartCache, logger)
	orderService := service.NewOrderService(store, gateway, logger)

	cartHandler := h.NewCartHandler(cartService)
	checkoutHandler := h.NewCheckoutHandler(checkoutService)
	ordersHandler := h.NewOrdersHandler(orderService)

	serverMetrics := metrics.NewServerMetrics("api")

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.MetricsMiddleware(serverMetrics))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.HeaderAuthMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{line_id}", cartHandler.UpdateItem)
			r.Delete("/items/{line_id}", cartHandler.RemoveItem)
		})

		r.Post("/checkout", checkoutHandler.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
			r.Post("/{order_id}/cancel", ordersHandler.CancelOrder)
			r.Post("/{order_id}/refund", ordersHandler.RefundOrder)
			r.Post("/{order_id}/deliver", ordersHandler.MarkDelivered)
			r.Post("/{order_id}/pay", ordersHandler.PayOrder)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("storefront API starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
