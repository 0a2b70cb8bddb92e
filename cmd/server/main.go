package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basketbay/config"
	"basketbay/internal/api"
	"basketbay/internal/backend"
	"basketbay/internal/broker"
	"basketbay/internal/redisclient"
	"basketbay/internal/service"
	"basketbay/internal/store"
	"basketbay/internal/util"
	"basketbay/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service", zap.String("backend", cfg.Backend.BaseURL))

	tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint, cfg.Observ.TraceSampleRate)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to prepare checkout journal: %v", err)
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	storefrontProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStorefront)
	defer storefrontProducer.Close()
	catalogProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog)
	defer catalogProducer.Close()
	logger.Info("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(storefrontProducer, catalogProducer)

	backendClient, err := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	if err != nil {
		log.Fatalf("Failed to create backend client: %v", err)
	}
	catalogClient := backend.NewCatalogClient(backendClient, backend.ImageResolver{
		BaseURL:      cfg.Backend.ImageBaseURL,
		DefaultImage: cfg.Backend.DefaultImage,
	})
	orderClient := backend.NewOrderClient(backendClient)
	paymentClient := backend.NewPaymentClient(backendClient)
	authClient := backend.NewAuthClient(backendClient)

	historyService := service.NewHistoryService(orderClient, redisClient)
	sessionService := service.NewSessionService(authClient, historyService, cfg.Business.NotificationCapacity)
	cartService := service.NewCartService(catalogClient, cfg.Business.PageLimit)
	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		Catalog:  catalogClient,
		Orders:   orderClient,
		Payments: paymentClient,
		Receipts: redisClient,
		Journal:  db,
		Events:   eventPublisher,
		History:  historyService,
	}, cfg.Business.ReceiptTTL, cfg.Business.PageLimit)
	sessionService.SetCanceller(checkoutService)
	adminService := service.NewAdminService(catalogClient, orderClient, eventPublisher, cfg.Business.PageLimit)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	catalogConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog, cfg.Kafka.ConsumerGroup)
	catalogWorker := worker.NewCatalogWorker(catalogConsumer, sessionService)
	go func() {
		if err := catalogWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Catalog worker error", zap.Error(err))
		}
	}()

	sweeper := worker.NewSessionSweeper(sessionService, cfg.Business.SessionIdle, time.Minute)
	go func() {
		_ = sweeper.Start(workerCtx)
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Services{
		Sessions: sessionService,
		Carts:    cartService,
		Checkout: checkoutService,
		History:  historyService,
		Admin:    adminService,
	}, map[string]api.ReadinessCheck{
		"redis":    redisClient.Ping,
		"database": db.Ping,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := catalogWorker.Stop(); err != nil {
		logger.Warn("Failed to stop catalog worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
