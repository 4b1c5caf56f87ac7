package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/application/command"
	"github.com/bivex/storekit-manager/internal/application/middleware"
	"github.com/bivex/storekit-manager/internal/application/query"
	"github.com/bivex/storekit-manager/internal/domain/service"
	"github.com/bivex/storekit-manager/internal/infrastructure/cache"
	"github.com/bivex/storekit-manager/internal/infrastructure/config"
	"github.com/bivex/storekit-manager/internal/infrastructure/dispatch"
	"github.com/bivex/storekit-manager/internal/infrastructure/logging"
	"github.com/bivex/storekit-manager/internal/infrastructure/notify"
	"github.com/bivex/storekit-manager/internal/infrastructure/platform/events"
	"github.com/bivex/storekit-manager/internal/infrastructure/platform/remote"
	"github.com/bivex/storekit-manager/internal/infrastructure/platform/sandbox"
	app_handler "github.com/bivex/storekit-manager/internal/interfaces/http/handlers"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logging.Init(cfg.Server.Environment, &cfg.Sentry); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	logging.Logger.Info("Starting storekit manager",
		zap.Int("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Environment),
		zap.String("platform", cfg.Platform.Mode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Redis
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logging.Logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	opts.PoolSize = cfg.Redis.PoolSize
	opts.MinIdleConns = cfg.Redis.MinIdleConns
	opts.DialTimeout = cfg.Redis.DialTimeout
	opts.ReadTimeout = cfg.Redis.ReadTimeout
	opts.WriteTimeout = cfg.Redis.WriteTimeout
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logging.Logger.Fatal("Failed to ping Redis", zap.Error(err))
	}

	// Initialize the purchase manager
	queue := dispatch.NewSerialQueue(logging.Logger)

	platform, listen, err := buildPlatform(cfg, redisClient)
	if err != nil {
		logging.Logger.Fatal("Failed to initialize platform", zap.Error(err))
	}

	catalog := cache.NewCatalogCache(cfg.Manager.CatalogTTL, logging.Logger)
	manager := service.NewPurchaseManager(platform, queue, catalog, logging.Logger)

	var taskObserver *notify.TaskObserver
	observers := service.MultiObserver{service.NewNotificationService(logging.Logger)}
	if cfg.Notify.Enabled {
		taskObserver = notify.NewTaskObserver(asynq.NewClientFromRedisClient(redisClient), cfg.Notify.Queue, logging.Logger)
		observers = append(observers, taskObserver)
	}
	manager.SetObserver(observers)

	if err := manager.Start(ctx); err != nil {
		logging.Logger.Fatal("Failed to start purchase manager", zap.Error(err))
	}

	if listen != nil {
		go func() {
			if err := listen(ctx); err != nil {
				logging.Logger.Error("Platform event stream stopped", zap.Error(err))
				stop()
			}
		}()
	}

	// Initialize middleware
	jwtMiddleware := middleware.NewJWTMiddleware(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		middleware.NewRedisBlocklist(redisClient),
		logging.WithComponent("jwt"),
	)
	rateLimiter := middleware.NewRateLimiter(redis_rate.NewLimiter(redisClient), true, logging.WithComponent("rate_limiter")) // fail open

	// Initialize handlers
	storeHandler := app_handler.NewStoreHandler(
		command.NewQueryProductsCommand(manager, cfg.Manager.RequestTimeout),
		command.NewPurchaseCommand(manager),
		command.NewRestoreCommand(manager),
		query.NewGetStatusQuery(manager),
	)

	// Setup Gin router
	if cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.RequestMiddleware(logging.Logger),
	)

	// Health check endpoint (no auth required)
	router.GET("/health", app_handler.Health)

	// API v1 routes (require JWT)
	v1 := router.Group("/v1")
	v1.Use(
		jwtMiddleware.Authenticate(),
		rateLimiter.Middleware(middleware.ByClientID, redis_rate.PerMinute(cfg.Server.RateLimit)),
	)
	storeHandler.RegisterRoutes(v1)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logging.Logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	logging.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	closeAll(logging.Logger, drainSteps(queue, taskObserver))

	logging.Logger.Info("Server exited")
}

// buildPlatform returns the configured platform and, for remote platforms,
// the function that streams its inbound events.
func buildPlatform(cfg *config.Config, redisClient *redis.Client) (service.Platform, func(context.Context) error, error) {
	switch cfg.Platform.Mode {
	case config.PlatformSandbox:
		products, err := sandbox.ParseCatalog(cfg.Platform.SandboxProducts, cfg.Platform.Locale)
		if err != nil {
			return nil, nil, err
		}
		return sandbox.New(products, logging.Logger), nil, nil

	case config.PlatformRemote:
		client := remote.NewClient(cfg.Platform.BaseURL, cfg.Platform.APIKey, cfg.Platform.Timeout, logging.Logger).
			SetResponseTimeout(cfg.Platform.ResponseTimeout)

		var source events.Source
		if cfg.Events.Source == config.EventsNATS {
			conn, err := events.ConnectNATS(cfg.Events.NATSURL, logging.Logger)
			if err != nil {
				return nil, nil, err
			}
			source = events.NewNATSSource(conn, cfg.Events.Channel, logging.Logger)
		} else {
			source = events.NewRedisSource(redisClient, cfg.Events.Channel, logging.Logger)
		}

		return client, func(ctx context.Context) error { return client.Listen(ctx, source) }, nil
	}
	return nil, nil, fmt.Errorf("unknown platform mode %q", cfg.Platform.Mode)
}
