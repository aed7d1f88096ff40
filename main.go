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
	"go.uber.org/zap"

	"github.com/vanguard-api/vanguard/audit"
	"github.com/vanguard-api/vanguard/auth"
	"github.com/vanguard-api/vanguard/cache"
	"github.com/vanguard-api/vanguard/config"
	"github.com/vanguard-api/vanguard/controller"
	"github.com/vanguard-api/vanguard/db"
	logger "github.com/vanguard-api/vanguard/logging"
	"github.com/vanguard-api/vanguard/ratelimit"
	"github.com/vanguard-api/vanguard/router"
	"github.com/vanguard-api/vanguard/service"
	"github.com/vanguard-api/vanguard/store"
	"github.com/vanguard-api/vanguard/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.GetConfig()

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize MySQL
	if err := db.InitMySQL(); err != nil {
		logger.Fatal("Failed to initialize MySQL", zap.Error(err))
	}
	defer db.CloseMySQL()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Shared state store and the pipeline stages built on it
	sharedStore := store.NewRedisStore(db.RedisClient, "vanguard", store.WithLogger(zap.L()))
	limiter := ratelimit.NewLimiter(sharedStore, cfg.RateLimit, zap.L())
	cacheLayer := cache.NewLayer(sharedStore, cfg.Cache.InvalidateRetries, cfg.Cache.InvalidateBackoff, zap.L())
	guard := auth.NewGuard(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Audit trail subscribes to every domain mutation
	auditRepository, err := audit.NewElasticsearchRepository(cfg.Elasticsearch.URL)
	if err != nil {
		logger.Fatal("Failed to initialize Elasticsearch", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)
	audit.RegisterSubscribers(eventBus, auditService)

	// Initialize services and controllers
	services := service.InitializeServices(db.DB, cacheLayer, eventBus)
	controllers := controller.InitializeControllers(services, guard, cfg.Auth.TokenTTL)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	engine := router.SetupRouter(controllers, guard, limiter, cacheLayer, cfg.Cache, eventBus)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: engine,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
