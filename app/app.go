package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"storefront/app/controller"
	"storefront/app/router"
	"storefront/config"
	"storefront/db"
	"storefront/pricing"
	"storefront/repository"
	"storefront/service"
)

// App is the wired backend
type App struct {
	Handler http.Handler
	db      *sql.DB
}

// Close releases the database connection
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Initialize initializes the application
func Initialize(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	// Initialize database connection
	conn, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	a, err := build(ctx, cfg, conn, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg config.Config, conn *sql.DB, logger *zap.Logger) (*App, error) {
	engine, err := pricing.NewEngine(cfg.PricingConfig, logger.Named("pricing"))
	if err != nil {
		return nil, err
	}

	// Drive is optional; without it image uploads answer 503
	var images service.ImageStoreInterface
	if cfg.DriveEnabled() {
		driveService, err := service.NewDriveService(ctx, cfg.CredentialsPath, cfg.CredentialsJSON, cfg.DriveFolderID, logger.Named("drive"))
		if err != nil {
			return nil, err
		}
		images = driveService
	} else {
		logger.Warn("⚠️ Google Drive credentials not set, product image uploads are disabled")
	}

	optimizer := service.NewImageOptimizer(cfg.ImageCacheDir, logger.Named("images"))
	if err := optimizer.EnsureCacheDir(); err != nil {
		logger.Warn("⚠️ Could not create image cache directory", zap.String("dir", cfg.ImageCacheDir), zap.Error(err))
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(conn, logger.Named("products"))
	orderRepo := repository.NewOrderRepository(conn, logger.Named("orders"))

	// Initialize services
	productService := service.NewProductService(productRepo, images, optimizer, logger.Named("products"))
	orderService := service.NewOrderService(orderRepo, productRepo, engine, logger.Named("orders"))
	receiptService, err := service.NewReceiptService(orderService, engine, cfg.BaseURL, cfg.ChromePath, logger.Named("receipts"))
	if err != nil {
		return nil, err
	}

	// Create controllers
	controllers := &router.Controllers{
		Product: controller.NewProductController(productService, logger.Named("http")),
		Order:   controller.NewOrderController(orderService, receiptService, logger.Named("http")),
	}

	return &App{
		Handler: router.SetupRoutes(controllers, logger.Named("http")),
		db:      conn,
	}, nil
}
