package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopcms-backend/internal/shared/middleware"
	"shopcms-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupAuthRoutes(v1, c)
		setupStorefrontRoutes(v1, c)
		setupAdminRoutes(v1, c)
	}

	return router
}

// ========================================
// AUTH ROUTES
// ========================================
func setupAuthRoutes(v1 *gin.RouterGroup, c *container.Container) {
	auth := v1.Group("/auth")
	{
		auth.POST("/admin/login", c.AuthHandler.AdminLogin)
	}
}

// ========================================
// STOREFRONT ROUTES
// ========================================
func setupStorefrontRoutes(v1 *gin.RouterGroup, c *container.Container) {
	// Guest checkout preview được phép, token (nếu có) cho customer_id
	v1.POST("/cart/preview", middleware.OptionalAuthMiddleware(c.JWTManager), c.DiscountPublicHandler.PreviewCart)
	v1.POST("/checkout/finalize", middleware.AuthMiddleware(c.JWTManager), c.DiscountPublicHandler.FinalizeOrder)

	v1.GET("/promotions/active", c.PromotionPublicHandler.ListActivePromotions)

	v1.GET("/products/:id", c.CatalogHandler.GetProduct)
	v1.GET("/categories", c.CatalogHandler.ListCategories)
	v1.GET("/currencies", c.CurrencyHandler.ListCurrencies)
}

// ========================================
// ADMIN ROUTES
// ========================================
func setupAdminRoutes(v1 *gin.RouterGroup, c *container.Container) {
	admin := v1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())

	discounts := admin.Group("/discounts")
	{
		discounts.POST("", c.DiscountAdminHandler.CreateDiscount)
		discounts.GET("", c.DiscountAdminHandler.ListDiscounts)
		discounts.GET("/:id", c.DiscountAdminHandler.GetDiscount)
		discounts.PUT("/:id", c.DiscountAdminHandler.UpdateDiscount)
		discounts.PATCH("/:id/status", c.DiscountAdminHandler.UpdateStatus)
		discounts.DELETE("/:id", c.DiscountAdminHandler.DeleteDiscount)
		discounts.GET("/:id/usage", c.DiscountAdminHandler.GetUsageHistory)
		discounts.GET("/:id/usage/export", c.DiscountAdminHandler.ExportUsage)
	}

	promotions := admin.Group("/promotions")
	{
		promotions.POST("", c.PromotionAdminHandler.CreatePromotion)
		promotions.GET("", c.PromotionAdminHandler.ListPromotions)
		promotions.GET("/:id", c.PromotionAdminHandler.GetPromotion)
		promotions.PUT("/:id", c.PromotionAdminHandler.UpdatePromotion)
		promotions.DELETE("/:id", c.PromotionAdminHandler.DeletePromotion)
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
			"storage":   appCtx.Config.Storage.Driver,
		}

		// Database (postgres driver only)
		dbStatus := "not used"
		if appCtx.DB != nil {
			dbStatus = "ok"
			if err := appCtx.DB.HealthCheck(ctx); err != nil {
				dbStatus = fmt.Sprintf("error: %v", err)
				health["status"] = "degraded"
			} else if stats, err := appCtx.DB.Stats(); err == nil {
				health["pool"] = stats
			}
		}

		cacheStatus := "ok"
		if err := appCtx.Cache.Ping(ctx); err != nil {
			cacheStatus = fmt.Sprintf("error: %v", err)
		}
		cacheBackend := "memory"
		if appCtx.RedisClient != nil {
			cacheBackend = "redis"
		}

		health["services"] = gin.H{
			"database": dbStatus,
			"cache":    gin.H{"backend": cacheBackend, "status": cacheStatus},
		}

		statusCode := http.StatusOK
		if health["status"] != "ok" {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, health)
	}
}
