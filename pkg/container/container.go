package container

import (
	"context"
	"fmt"
	"time"

	"shopcms-backend/internal/config"
	infraCache "shopcms-backend/internal/infrastructure/cache"
	"shopcms-backend/internal/infrastructure/database"
	"shopcms-backend/internal/infrastructure/filestore"
	"shopcms-backend/pkg/cache"
	"shopcms-backend/pkg/jwt"
	"shopcms-backend/pkg/logger"

	authHandler "shopcms-backend/internal/domains/auth/handler"
	authService "shopcms-backend/internal/domains/auth/service"
	catalogHandler "shopcms-backend/internal/domains/catalog/handler"
	catalogRepo "shopcms-backend/internal/domains/catalog/repository"
	catalogService "shopcms-backend/internal/domains/catalog/service"
	currencyHandler "shopcms-backend/internal/domains/currency/handler"
	currencyRepo "shopcms-backend/internal/domains/currency/repository"
	currencyService "shopcms-backend/internal/domains/currency/service"
	discountHandler "shopcms-backend/internal/domains/discount/handler"
	discountRepo "shopcms-backend/internal/domains/discount/repository"
	discountService "shopcms-backend/internal/domains/discount/service"
	promotionHandler "shopcms-backend/internal/domains/promotion/handler"
	promotionRepo "shopcms-backend/internal/domains/promotion/repository"
	promotionService "shopcms-backend/internal/domains/promotion/service"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container chứa tất cả dependencies của application (root của dependency graph)
type Container struct {
	// Infrastructure
	Config      *config.Config
	DB          *database.PostgresDB // nil khi STORAGE_DRIVER=json
	Store       *filestore.Store     // nil khi STORAGE_DRIVER=postgres
	RedisClient *infraCache.RedisClient
	Cache       cache.Cache
	JWTManager  *jwt.Manager

	// Repositories
	DiscountRepo  discountRepo.DiscountRepository
	UsageRepo     discountRepo.UsageRepository
	PromotionRepo promotionRepo.PromotionRepository
	CatalogRepo   catalogRepo.Repository
	RateRepo      currencyRepo.RateRepository

	// Services
	DiscountService  discountService.ServiceInterface
	CheckoutService  discountService.CheckoutServiceInterface
	PromotionService promotionService.ServiceInterface
	CatalogService   catalogService.ServiceInterface
	Converter        *currencyService.Converter
	AuthService      authService.ServiceInterface

	// Handlers
	DiscountAdminHandler   *discountHandler.AdminHandler
	DiscountPublicHandler  *discountHandler.PublicHandler
	PromotionAdminHandler  *promotionHandler.AdminHandler
	PromotionPublicHandler *promotionHandler.PublicHandler
	CatalogHandler         *catalogHandler.CatalogHandler
	CurrencyHandler        *currencyHandler.CurrencyHandler
	AuthHandler            *authHandler.AuthHandler
}

// NewContainer khởi tạo container theo thứ tự:
// Config -> Storage -> Cache -> Repositories -> Services -> Handlers
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg

	if err := c.initStorage(); err != nil {
		c.Cleanup()
		return nil, err
	}

	c.initCache()

	c.JWTManager = jwt.NewManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
	)

	c.initServices()
	c.initHandlers()

	logger.Info("DI container initialized", map[string]interface{}{
		"storage": cfg.Storage.Driver,
		"redis":   c.RedisClient != nil,
	})
	return c, nil
}

// -------------------------------------------------------------------
// STORAGE
// -------------------------------------------------------------------

func (c *Container) initStorage() error {
	switch c.Config.Storage.Driver {
	case config.StorageDriverJSON:
		return c.initJSONStorage()
	default:
		return c.initPostgresStorage()
	}
}

func (c *Container) initPostgresStorage() error {
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	c.DB = db

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	discounts := discountRepo.NewPostgresRepository(db.Pool)
	c.DiscountRepo = discounts
	c.UsageRepo = discounts
	c.PromotionRepo = promotionRepo.NewPostgresRepository(db.Pool)
	c.CatalogRepo = catalogRepo.NewPostgresRepository(db.Pool)
	c.RateRepo = currencyRepo.NewPostgresRepository(db.Pool)
	return nil
}

func (c *Container) initJSONStorage() error {
	store, err := filestore.New(c.Config.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open data dir %s: %w", c.Config.Storage.DataDir, err)
	}
	c.Store = store

	discounts := discountRepo.NewJSONRepository(store)
	c.DiscountRepo = discounts
	c.UsageRepo = discounts
	c.PromotionRepo = promotionRepo.NewJSONRepository(store)
	c.CatalogRepo = catalogRepo.NewJSONRepository(store)
	c.RateRepo = currencyRepo.NewJSONRepository(store)

	logger.Info("Using JSON file storage", map[string]interface{}{"dir": c.Config.Storage.DataDir})
	return nil
}

// -------------------------------------------------------------------
// CACHE
// -------------------------------------------------------------------

// initCache: Redis failure không critical, fallback sang in-process cache
func (c *Container) initCache() {
	if !c.Config.Redis.Enabled {
		c.Cache = cache.NewMemoryCache()
		return
	}

	client := infraCache.NewRedisClient(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		logger.Warn("Redis unavailable, falling back to memory cache", map[string]interface{}{
			"host":  c.Config.Redis.Host,
			"error": err.Error(),
		})
		c.Cache = cache.NewMemoryCache()
		return
	}

	c.RedisClient = client
	c.Cache = infraCache.NewRedisCache(client, c.Config.Redis.KeyPrefix)
}

// -------------------------------------------------------------------
// SERVICES + HANDLERS
// -------------------------------------------------------------------

func (c *Container) initServices() {
	ttl := c.Config.Redis.RuleCacheTTL

	c.CatalogService = catalogService.NewCatalogService(c.CatalogRepo, c.Cache, ttl)
	c.Converter = currencyService.NewConverter(c.Config.Currency, c.RateRepo, c.Cache)
	c.DiscountService = discountService.NewDiscountService(c.DiscountRepo, c.UsageRepo, c.Cache, ttl)
	c.PromotionService = promotionService.NewPromotionService(c.PromotionRepo, c.Cache, ttl)

	c.CheckoutService = discountService.NewCheckoutService(
		c.DiscountService,
		c.PromotionService,
		c.CatalogService,
		c.Converter,
		c.UsageRepo,
		discountService.CheckoutConfig{
			ShippingFee:         c.Config.Checkout.ShippingFee,
			MaxFinalizeAttempts: c.Config.Checkout.MaxFinalizeAttempts,
		},
	)

	c.AuthService = authService.NewAuthService(c.Config.Admin.Email, c.Config.Admin.PasswordHash, c.JWTManager)
}

func (c *Container) initHandlers() {
	c.DiscountAdminHandler = discountHandler.NewAdminHandler(c.DiscountService)
	c.DiscountPublicHandler = discountHandler.NewPublicHandler(c.CheckoutService)
	c.PromotionAdminHandler = promotionHandler.NewAdminHandler(c.PromotionService)
	c.PromotionPublicHandler = promotionHandler.NewPublicHandler(c.PromotionService)
	c.CatalogHandler = catalogHandler.NewCatalogHandler(c.CatalogService)
	c.CurrencyHandler = currencyHandler.NewCurrencyHandler(c.Converter)
	c.AuthHandler = authHandler.NewAuthHandler(c.AuthService)
}

// Cleanup đóng tất cả connections khi shutdown
func (c *Container) Cleanup() {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.Error("Failed to close redis", err)
		}
	}
}
