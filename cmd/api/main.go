package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/application/middleware"
	"github.com/bivex/billing-recon/internal/domain/service"
	"github.com/bivex/billing-recon/internal/infrastructure/config"
	stripegw "github.com/bivex/billing-recon/internal/infrastructure/external/stripe"
	"github.com/bivex/billing-recon/internal/infrastructure/logging"
	"github.com/bivex/billing-recon/internal/infrastructure/persistence/pool"
	"github.com/bivex/billing-recon/internal/infrastructure/persistence/repository"
	app_handler "github.com/bivex/billing-recon/internal/interfaces/http/handlers"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logging.Init(&cfg.Sentry); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	logging.Logger.Info("Starting billing reconciliation API server",
		zap.Int("port", cfg.Server.Port),
		zap.String("environment", cfg.Sentry.Environment),
	)

	// Initialize database connection
	ctx := context.Background()
	dbPool, err := pool.NewPool(ctx, cfg.Database)
	if err != nil {
		logging.Logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close(dbPool)

	if err := pool.Ping(ctx, dbPool); err != nil {
		logging.Logger.Fatal("Failed to ping database", zap.Error(err))
	}

	// Initialize Redis
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logging.Logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	opts.PoolSize = cfg.Redis.PoolSize
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logging.Logger.Fatal("Failed to ping Redis", zap.Error(err))
	}

	// Initialize payment gateway client
	gatewayClient, err := stripegw.NewClient(cfg.Gateway)
	if err != nil {
		logging.Logger.Fatal("Failed to create gateway client", zap.Error(err))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool)
	methodRepo := repository.NewPaymentMethodRepository(dbPool)
	failureRepo := repository.NewPaymentFailureRepository(dbPool)
	subscriptionRepo := repository.NewSubscriptionRepository(dbPool)
	notificationRepo := repository.NewNotificationRepository(dbPool)
	eventRepo := repository.NewWebhookEventRepository(dbPool)

	// Initialize services
	recoveryService := service.NewRecoveryService(gatewayClient, methodRepo, logging.WithComponent("recovery"))
	reconciler := service.NewSubscriptionReconciler(gatewayClient, subscriptionRepo, logging.WithComponent("reconciler"))
	dispatcher := service.NewNotificationDispatcher(notificationRepo, userRepo, logging.WithComponent("dispatcher"))
	reconciliationService := service.NewReconciliationService(
		userRepo,
		failureRepo,
		recoveryService,
		reconciler,
		dispatcher,
		logging.WithComponent("reconciliation"),
	)

	// Asynq client for deferred recovery retries
	asynqClient := asynq.NewClientFromRedisClient(redisClient)
	defer asynqClient.Close()

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisClient, true) // fail open

	// Initialize handlers
	webhookHandler := app_handler.NewWebhookHandler(
		cfg.Gateway.WebhookSecret,
		cfg.Gateway.RetryDelay,
		reconciliationService,
		eventRepo,
		asynqClient,
	)
	paymentMethodHandler := app_handler.NewPaymentMethodHandler(recoveryService, failureRepo)

	// Setup Gin router
	if cfg.Sentry.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.RequestMiddleware(logging.Logger),
	)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhook routes (no auth, verified by signature)
	webhooks := router.Group("/webhook")
	{
		webhooks.POST("/stripe",
			rateLimiter.Middleware(middleware.ByIP, middleware.WebhookConfig),
			webhookHandler.StripeWebhook,
		)
	}

	// API v1 routes
	v1 := router.Group("/v1")
	{
		methods := v1.Group("/payment-methods")
		methods.Use(rateLimiter.Middleware(middleware.ByIPAndEndpoint, middleware.DefaultConfig))
		{
			methods.GET("/:id/status", paymentMethodHandler.GetStatus)
			methods.GET("/:id/failures", paymentMethodHandler.GetFailures)
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		logging.Logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("Server exited")
}
