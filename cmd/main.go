package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"order-core/internal/assembler"
	"order-core/internal/compensation"
	"order-core/internal/config"
	"order-core/internal/events"
	"order-core/internal/foreignclients"
	"order-core/internal/handlers"
	"order-core/internal/lifecycle"
	"order-core/internal/middleware"
	"order-core/internal/models"
	"order-core/internal/projection"
	"order-core/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := migrateDatabase(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Printf("Warning: Failed to parse Redis URL: %v", err)
			log.Println("Continuing without Redis caching...")
		} else {
			redisClient = redis.NewClient(opt)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("Warning: Failed to connect to Redis: %v", err)
				log.Println("Continuing without Redis caching...")
				redisClient = nil
			} else {
				log.Println("✓ Connected to Redis for projection caching")
			}
		}
	} else {
		log.Println("REDIS_URL not configured, projection caching disabled")
	}

	orderRepo := repository.NewOrderRepository(db)
	compensationRepo := repository.NewCompensationRepository(db)
	projectionRepo := repository.NewProjectionRepository(db, redisClient, logger)

	cartClient := foreignclients.NewCartClient(cfg.Foreign.CartServiceURL)
	inventoryClient := foreignclients.NewInventoryClient(cfg.Foreign.InventoryServiceURL)
	discountClient := foreignclients.NewDiscountClient(cfg.Foreign.DiscountServiceURL)
	shipmentClient := foreignclients.NewShipmentClient(cfg.Foreign.ShipmentServiceURL)

	eventsPublisher, err := events.NewPublisher(cfg.NATS.URL, logger)
	if err != nil {
		log.Fatalf("Failed to initialize NATS events publisher: %v", err)
	}
	log.Println("✓ NATS events publisher initialized")

	compensationEngine := compensation.NewEngine(orderRepo, compensationRepo, eventsPublisher, logger)
	projector := projection.NewProjector(projectionRepo, compensationEngine, logger)

	projectionSubscriber, err := projection.NewSubscriber(cfg.NATS.URL, projector, logger)
	if err != nil {
		log.Fatalf("Failed to initialize projection subscriber: %v", err)
	}

	subCtx, subCancel := context.WithCancel(context.Background())
	go func() {
		if err := projectionSubscriber.Start(subCtx); err != nil {
			log.Printf("WARNING: projection subscriber stopped: %v", err)
		}
	}()
	log.Println("✓ Reference Projection subscriber started")

	orderAssembler := assembler.NewAssembler(projectionRepo, orderRepo, cartClient, inventoryClient, discountClient, shipmentClient, logger)
	orderLifecycle := lifecycle.NewLifecycle(orderRepo, eventsPublisher, cfg.Lifecycle.PendingTimeout, logger)

	orderHandler := handlers.NewOrderHandler(orderAssembler, orderLifecycle, orderRepo)

	router := setupRouter(cfg, orderHandler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down order core...")

		subCancel()
		projectionSubscriber.Stop()
		log.Println("✓ Projection subscriber stopped")

		eventsPublisher.Close()
		log.Println("✓ Events publisher closed")

		log.Println("Order core stopped")
		os.Exit(0)
	}()

	log.Printf("Starting order core on %s", cfg.GetServerAddress())
	if err := router.Run(cfg.GetServerAddress()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}

func migrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.OrderCompensation{},
		&models.User{},
		&models.ProductVariant{},
		&models.TaxRate{},
		&models.Coupon{},
		&models.ShipmentMethod{},
	)
}

func setupRouter(cfg *config.Config, orderHandler *handlers.OrderHandler) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SetupCORS())
	router.Use(middleware.Logger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "order-core"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "order-core"})
	})

	router.GET("/subscriptions", handlers.SubscriptionManifest)

	api := router.Group("/api/v1")
	api.Use(middleware.CallerIdentity())
	{
		api.POST("/orders", orderHandler.CreateOrder)
		api.POST("/orders/:id/place", orderHandler.PlaceOrder)
		api.GET("/orders/:id", orderHandler.GetOrder)
		api.GET("/order-items/:id", orderHandler.GetOrderItem)
		api.GET("/users/:userId/orders", orderHandler.ListUserOrders)
	}

	return router
}
