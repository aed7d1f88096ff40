// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vanguard-api/vanguard/auth"
	"github.com/vanguard-api/vanguard/cache"
	"github.com/vanguard-api/vanguard/config"
	"github.com/vanguard-api/vanguard/controller"
	"github.com/vanguard-api/vanguard/middleware"
	"github.com/vanguard-api/vanguard/ratelimit"
	"github.com/vanguard-api/vanguard/util"
)

func SetupRouter(
	controllers *controller.Controllers,
	guard *auth.Guard,
	limiter *ratelimit.Limiter,
	cacheLayer *cache.Layer,
	cacheCfg config.CacheConfiguration,
	eventBus *util.EventBus,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.AuditRejections(eventBus))

	api := router.Group("/api/v1")

	// Unauthenticated routes draw from per-IP buckets.
	authRoutes := api.Group("/auth")
	authRoutes.Use(middleware.RateLimit(limiter))
	controllers.Auth.RegisterRoutes(authRoutes)

	// Authentication runs before rate limiting so a request with bad
	// credentials never consumes window budget, and rate limiting runs
	// before the cache so hits still count against the window.
	protected := api.Group("")
	protected.Use(middleware.Authenticator(guard))
	protected.Use(middleware.RateLimit(limiter))

	items := protected.Group("/items")
	{
		items.POST("", controllers.Item.CreateItem)
		items.GET("", controllers.Item.SearchItems)
		items.GET("/:id",
			middleware.ResponseCache(cacheLayer, "item", resourceTTL(cacheCfg, "item"), false),
			controllers.Item.GetItem)
		items.PUT("/:id", controllers.Item.UpdateItem)
		items.DELETE("/:id", controllers.Item.DeleteItem)
	}

	users := protected.Group("/users")
	{
		users.GET("/me", controllers.User.GetCurrentUser)
		users.GET("/:id",
			middleware.ResponseCache(cacheLayer, "user", resourceTTL(cacheCfg, "user"), false),
			controllers.User.GetUser)
		users.PUT("/:id", controllers.User.UpdateUser)
		users.DELETE("/:id", controllers.User.DeleteUser)
	}

	return router
}

func resourceTTL(cfg config.CacheConfiguration, resourceType string) time.Duration {
	if ttl, ok := cfg.ResourceTTL[resourceType]; ok && ttl > 0 {
		return ttl
	}
	return cfg.DefaultTTL
}
