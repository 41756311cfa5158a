package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"lotwise/internal/caching"
	"lotwise/internal/config"
	"lotwise/internal/handlers"
	"lotwise/internal/jobs"
	"lotwise/internal/jobs/background"
	"lotwise/internal/logging"
	"lotwise/internal/middleware"
	"lotwise/internal/repositories"
	"lotwise/internal/services"
	"lotwise/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("database connected")

	redisClient := caching.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	cacheSvc := caching.NewRedisCacheService(redisClient, logger)

	manifestArchive, err := services.NewManifestArchive(
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.ManifestBucket, cfg.MinioUseSSL)
	if err != nil {
		logger.Fatal("manifest archive init failed", zap.Error(err))
	}
	if err := manifestArchive.EnsureBucketExists(ctx); err != nil {
		// Intake still works without the archive; complain and continue.
		logger.Warn("manifest bucket unavailable", zap.Error(err))
	}

	// Repositories
	lotRepo := repositories.NewLotRepo(pool)
	reservationRepo := repositories.NewReservationRepo(pool)
	productRepo := repositories.NewProductRepo(pool)

	// Services
	ledgerSvc := services.NewLedgerService(lotRepo, logger)
	allocatorSvc := services.NewAllocatorService(pool, lotRepo, reservationRepo, ledgerSvc, logger)
	lifecycleSvc := services.NewLifecycleService(pool, lotRepo, reservationRepo, ledgerSvc, cacheSvc, logger)
	receivingSvc := services.NewReceivingService(pool, lotRepo, manifestArchive, logger)
	stockSvc := services.NewStockService(lotRepo, productRepo, cacheSvc, logger)

	// Background jobs
	maintenance := jobs.NewMaintenanceService(lotRepo, stockSvc, cfg.ExpiryHorizon, logger)
	scheduler, err := background.NewJobScheduler(maintenance, cfg.SweepInterval, cfg.ResyncInterval, logger)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Error("scheduler shutdown failed", zap.Error(err))
		}
	}()

	// Handlers
	allocationHandlers := handlers.NewAllocationHandlers(allocatorSvc)
	orderHandlers := handlers.NewOrderHandlers(lifecycleSvc)
	stockHandlers := handlers.NewStockHandlers(stockSvc)
	receivingHandlers := handlers.NewReceivingHandlers(receivingSvc, manifestArchive)
	lotHandlers := handlers.NewLotHandlers(lotRepo, reservationRepo)
	healthHandlers := handlers.NewHealthHandlers(pool, redisClient)

	e := echo.New()
	e.HideBanner = true

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")
	v1.Use(middleware.VersionHeader("v1"))

	v1.POST("/allocations", allocationHandlers.Allocate)
	v1.POST("/orders/:id/delivered", orderHandlers.MarkDelivered)
	v1.POST("/orders/:id/cancelled", orderHandlers.MarkCancelled)

	v1.GET("/stock/:productID", stockHandlers.GetStock)
	v1.GET("/stock/:productID/check", stockHandlers.CheckStock)

	v1.POST("/receipts", receivingHandlers.ReceiveStock)
	v1.POST("/receipts/bulk", receivingHandlers.ReceiveBulk)
	v1.GET("/receipts/bulk/:groupID/manifest", receivingHandlers.GetBulkManifestURL)

	v1.GET("/lots", lotHandlers.ListLots)
	v1.GET("/lots/expiring", lotHandlers.ListExpiring)
	v1.GET("/lots/:id", lotHandlers.GetLot)
	v1.GET("/lots/:id/reservations", lotHandlers.GetLotReservations)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := e.Start(addr); err != nil {
			logger.Info("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
