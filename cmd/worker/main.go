package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/domain/service"
	"github.com/bivex/billing-recon/internal/infrastructure/config"
	stripegw "github.com/bivex/billing-recon/internal/infrastructure/external/stripe"
	"github.com/bivex/billing-recon/internal/infrastructure/logging"
	"github.com/bivex/billing-recon/internal/infrastructure/persistence/pool"
	"github.com/bivex/billing-recon/internal/infrastructure/persistence/repository"
	worker_tasks "github.com/bivex/billing-recon/internal/worker/tasks"
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

	logging.Logger.Info("Starting billing reconciliation worker")

	// Initialize database for worker tasks
	ctx := context.Background()
	dbPool, err := pool.NewPool(ctx, cfg.Database)
	if err != nil {
		logging.Logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close(dbPool)

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

	// Initialize repositories and services
	userRepo := repository.NewUserRepository(dbPool)
	methodRepo := repository.NewPaymentMethodRepository(dbPool)
	failureRepo := repository.NewPaymentFailureRepository(dbPool)
	subscriptionRepo := repository.NewSubscriptionRepository(dbPool)
	notificationRepo := repository.NewNotificationRepository(dbPool)

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
	scanner := service.NewExpiryScanner(
		gatewayClient,
		methodRepo,
		dispatcher,
		reconciliationService,
		cfg.Scanner.HorizonDays,
		cfg.Scanner.UrgentDays,
		logging.WithComponent("expiry_scanner"),
	)

	asynqClient := asynq.NewClientFromRedisClient(redisClient)
	defer asynqClient.Close()

	taskHandlers := worker_tasks.NewTaskHandlers(reconciliationService, scanner, asynqClient, cfg.Gateway)

	// Initialize Asynq server
	server := asynq.NewServerFromRedisClient(redisClient, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			// Exponential backoff: 2^n seconds
			return time.Duration(1<<uint(n)) * time.Second
		},
	})

	// Register task handlers
	mux := asynq.NewServeMux()
	worker_tasks.RegisterHandlers(mux, taskHandlers)

	// Start server in background
	if err := server.Start(mux); err != nil {
		logging.Logger.Fatal("Failed to start worker", zap.Error(err))
	}

	// Register scheduled tasks
	scheduler := asynq.NewSchedulerFromRedisClient(redisClient, nil)
	worker_tasks.RegisterScheduledTasks(scheduler, cfg.Scanner)

	if err := scheduler.Start(); err != nil {
		logging.Logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	logging.Logger.Info("Worker started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Shutting down worker...")

	scheduler.Shutdown()
	server.Shutdown()

	logging.Logger.Info("Worker exited")
}
