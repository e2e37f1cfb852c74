package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/auth"
	"github.com/nidhisingh5958/inventory-pulse/internal/config"
	"github.com/nidhisingh5958/inventory-pulse/internal/dedup"
	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/internal/events"
	"github.com/nidhisingh5958/inventory-pulse/internal/forecast"
	"github.com/nidhisingh5958/inventory-pulse/internal/handlers"
	"github.com/nidhisingh5958/inventory-pulse/internal/ingest"
	"github.com/nidhisingh5958/inventory-pulse/internal/kafka"
	"github.com/nidhisingh5958/inventory-pulse/internal/notifier"
	"github.com/nidhisingh5958/inventory-pulse/internal/plans"
	"github.com/nidhisingh5958/inventory-pulse/internal/policy"
	"github.com/nidhisingh5958/inventory-pulse/internal/store"
	"github.com/nidhisingh5958/inventory-pulse/pkg/logger"
	"github.com/nidhisingh5958/inventory-pulse/pkg/middleware"
)

func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	appLogger.Info("Starting inventory-pulse",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	appLogger.Info("Kafka configuration",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic_alerts", cfg.KafkaTopicAlerts),
		zap.String("topic_plans", cfg.KafkaTopicPlans),
		zap.String("group_id", cfg.KafkaGroupID),
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Plan store
	planStore, err := store.Open(cfg.SQLitePath, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open plan store", zap.Error(err))
	}
	defer planStore.Close()

	// Notification pipeline
	mailSender := notifier.NewLogMailSender(cfg.MailAccount, appLogger)
	pageSender := notifier.NewMemoryPageSender(cfg.WorkspaceDBID, appLogger)
	orchestrator := notifier.New(
		notifier.TemplateDrafter{Recipient: cfg.MailAccount},
		mailSender,
		pageSender,
		planStore,
		notifier.Options{
			MaxAttempts: cfg.NotifyMaxAttempts,
			BackoffBase: cfg.NotifyBackoffBase,
			BackoffCap:  cfg.NotifyBackoffCap,
		},
		appLogger,
	)

	dedupStore := dedup.NewStore(cfg, appLogger)
	processor := kafka.NewProcessor(orchestrator, dedupStore, cfg.DedupTTL, appLogger)

	// Event bus: Kafka when reachable, otherwise an in-process bus feeding
	// the processor directly so notifications still flow.
	var bus events.Publisher
	kafkaPublisher, err := events.NewKafkaPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Warn("Kafka unavailable, using in-memory event bus", zap.Error(err))
		memBus := events.NewMemoryBus(appLogger)
		memBus.OnEvent(func(ctx context.Context, event interface{}) error {
			data, err := json.Marshal(event)
			if err != nil {
				return err
			}
			switch event.(type) {
			case domain.Alert, *domain.Alert:
				return processor.ProcessEvent(ctx, events.TypeLowStockAlert, data)
			case events.PlanTransitionEvent, *events.PlanTransitionEvent:
				return processor.ProcessEvent(ctx, events.TypePlanTransition, data)
			}
			return nil
		})
		bus = memBus
	} else {
		defer kafkaPublisher.Close()
		bus = kafkaPublisher

		consumer, err := kafka.NewConsumer(cfg, processor, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create Kafka consumer", zap.Error(err))
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Start(rootCtx); err != nil {
				appLogger.Error("Kafka consumer stopped", zap.Error(err))
			}
		}()
	}

	// Core engines
	planService := plans.New(planStore, bus, cfg.AutoApproveCost, appLogger)
	cycle := ingest.NewCycle(
		ingest.NewCSVReader(cfg.SnapshotPath),
		forecast.New(),
		policy.New(),
		planService,
		appLogger,
	)
	go cycle.RunPeriodically(rootCtx, cfg.CycleInterval)

	// Auth
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, appLogger)
	authHandler := auth.NewAuthHandler(jwtManager, appLogger)
	signer := auth.NewWebhookSigner(cfg.WebhookSecret)

	// HTTP handlers
	planHandler := handlers.NewPlanHandler(planService, appLogger)
	approvalHandler := handlers.NewApprovalHandler(planService, signer, appLogger)
	opsHandler := handlers.NewOpsHandler(cycle, appLogger)

	router := gin.New()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RecoveryHandler(appLogger))
	router.Use(logger.GinMiddleware(appLogger))
	router.Use(middleware.RequestIDMiddleware(appLogger))
	router.Use(middleware.ErrorHandler(appLogger))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", opsHandler.Health)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
		}

		// Approval webhook authenticates by payload signature, not JWT
		v1.POST("/approvals", approvalHandler.HandleApproval)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, appLogger))
		{
			protected.GET("/plans", planHandler.ListPlans)
			protected.GET("/plans/:id", planHandler.GetPlan)
			protected.POST("/plans/:id/order", planHandler.PlaceOrder)
			protected.POST("/plans/:id/receive", planHandler.ConfirmReceipt)
			protected.POST("/plans/:id/cancel", planHandler.Cancel)
			protected.POST("/cycle/run", opsHandler.RunCycle)
			protected.POST("/alerts/simulate", opsHandler.SimulateAlert)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}
