package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appmetering "github.com/bizledger/backend/internal/application/metering"
	"github.com/bizledger/backend/internal/infrastructure/cache"
	"github.com/bizledger/backend/internal/infrastructure/config"
	"github.com/bizledger/backend/internal/infrastructure/logger"
	"github.com/bizledger/backend/internal/infrastructure/persistence"
	"github.com/bizledger/backend/internal/infrastructure/scheduler"
	"github.com/bizledger/backend/internal/interfaces/http/handler"
	"github.com/bizledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting usage metering backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	subscriberRepo := persistence.NewGormSubscriberRepository(db.DB)
	ledgerRepo := persistence.NewGormUsageLedgerRepository(db.DB)
	planLimitRepo := persistence.NewGormPlanLimitRepository(db.DB)
	countSource := persistence.NewGormCountSource(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Status cache, Redis first with in-memory fallback
	cacheFactory := cache.NewStatusCacheFactory(
		cfg.Redis,
		cfg.Metering.StatusCacheTTL,
		log,
		cache.WithInMemoryFallback(),
	)
	statusCache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to create status cache", zap.Error(err))
	}

	// Application services
	enforcerService := appmetering.NewEnforcerService(
		scope, subscriberRepo, ledgerRepo, planLimitRepo, statusCache,
		appmetering.EnforcerServiceConfig{LockWait: cfg.Metering.LockWait},
		log,
	)
	transitionService := appmetering.NewTransitionService(scope, statusCache, log)
	reconciliationService := appmetering.NewReconciliationService(
		scope, ledgerRepo, countSource, statusCache, log,
	)

	// Daily reconciliation pass
	reconScheduler := scheduler.NewReconciliationScheduler(
		reconciliationService,
		log,
		scheduler.ReconciliationSchedulerConfig{
			Enabled:        cfg.Scheduler.Enabled,
			RunAtHour:      cfg.Scheduler.RunAtHour,
			RunTimeout:     cfg.Scheduler.RunTimeout,
			InitialDelay:   cfg.Scheduler.InitialDelay,
			RunImmediately: cfg.Scheduler.RunImmediately,
		},
	)
	if err := reconScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
	}

	// HTTP layer
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.GET("/health", healthHandler(db))

	router.NewRouter(engine).
		Register(handler.NewUsageHandler(enforcerService, reconciliationService)).
		Register(handler.NewSubscriptionHandler(transitionService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := reconScheduler.Stop(ctx); err != nil {
		log.Error("Scheduler forced to stop", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
