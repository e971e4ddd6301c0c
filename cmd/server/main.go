package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	integrationapp "github.com/erp/catalog-sync/internal/application/integration"
	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/auth"
	"github.com/erp/catalog-sync/internal/infrastructure/cache"
	"github.com/erp/catalog-sync/internal/infrastructure/config"
	"github.com/erp/catalog-sync/internal/infrastructure/crypto"
	"github.com/erp/catalog-sync/internal/infrastructure/ecommerce"
	"github.com/erp/catalog-sync/internal/infrastructure/event"
	"github.com/erp/catalog-sync/internal/infrastructure/logger"
	"github.com/erp/catalog-sync/internal/infrastructure/migration"
	"github.com/erp/catalog-sync/internal/infrastructure/persistence"
	"github.com/erp/catalog-sync/internal/infrastructure/scheduler"
	"github.com/erp/catalog-sync/internal/infrastructure/telemetry"
	"github.com/erp/catalog-sync/internal/interfaces/http/handler"
	"github.com/erp/catalog-sync/internal/interfaces/http/middleware"
	"github.com/erp/catalog-sync/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName

	logCfg := logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    serviceName,
	}

	// Bootstrap logger for the telemetry providers; replaced once the OTLP log bridge exists
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	providers, err := telemetry.Setup(ctx, telemetry.Settings{
		ServiceName:     serviceName,
		ServiceVersion:  version,
		Endpoint:        cfg.Telemetry.CollectorEndpoint,
		Insecure:        cfg.Telemetry.Insecure,
		Traces:          cfg.Telemetry.Enabled,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
		Metrics:         cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		MetricsInterval: cfg.Telemetry.MetricsInterval,
		Logs:            cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	var extraCores []zapcore.Core
	if providers.LogsEnabled() {
		extraCores = append(extraCores, providers.LogCore(serviceName, logger.ParseLevel(cfg.Log.Level)))
	}
	log, err := logger.New(logCfg, extraCores...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting catalog sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	profiler, err := telemetry.StartProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: serviceName,
		Version:         version,
	}, log)
	if err != nil {
		log.Warn("Profiler unavailable, continuing without profiling", zap.Error(err))
	} else if profiler.Running() {
		providers.EnableSpanProfiles()
	}

	syncMetrics, err := telemetry.NewSyncMetrics(providers.Meter("catalog-sync"))
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	db, err := persistence.Open(ctx, &cfg.Database,
		persistence.WithLogger(log, cfg.Database.LogLevel, cfg.Telemetry.DBSlowQueryThresh),
		persistence.WithConnectRetry(cfg.Database.ConnectRetries, cfg.Database.ConnectRetryDelay),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if err := migration.ApplyEmbedded(cfg.Database.DSN(), log); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	var cipher persistence.SecretCipher
	if cfg.Sync.SecretKey != "" {
		box, err := crypto.NewSecretBoxFromBase64(cfg.Sync.SecretKey)
		if err != nil {
			log.Fatal("Invalid sync secret key", zap.Error(err))
		}
		cipher = box
	} else {
		log.Warn("CSYNC_SYNC_SECRET_KEY not set, API key is stored unencrypted")
	}

	// Repositories
	itemRepo := persistence.NewGormItemRepository(db.DB)
	priceReader := persistence.NewGormItemPriceReader(db.DB)
	stockReader := persistence.NewGormStockReader(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	settingsRepo := persistence.NewGormSyncSettingsRepository(db.DB, cipher)

	wixConfig := ecommerce.NewWixConfig()
	if cfg.Sync.BaseURL != "" {
		wixConfig.APIBaseURL = cfg.Sync.BaseURL
	}
	if cfg.Sync.RequestTimeout > 0 {
		wixConfig.Timeout = cfg.Sync.RequestTimeout
	}
	wixAdapter, err := ecommerce.NewWixAdapter(wixConfig, log)
	if err != nil {
		log.Fatal("Failed to create catalog client", zap.Error(err))
	}

	// Application services
	settingsService := integrationapp.NewSettingsService(settingsRepo, wixAdapter, integration.SettingsDefaults{
		Enabled: cfg.Sync.Enabled,
		SiteID:  cfg.Sync.DefaultSiteID,
		APIKey:  cfg.Sync.APIKey,
	}, log)
	initCtx, cancelInit := context.WithTimeout(ctx, 10*time.Second)
	err = settingsService.Init(initCtx)
	cancelInit()
	if err != nil {
		log.Fatal("Failed to load sync settings", zap.Error(err))
	}

	mapper, err := integrationapp.NewProductMapper(cfg.Sync.DefaultPriceDecimal(), cfg.Sync.DefaultCurrency)
	if err != nil {
		log.Fatal("Invalid product mapping configuration", zap.Error(err))
	}
	syncService := integrationapp.NewSyncService(
		settingsService,
		itemRepo,
		integration.NewSyncLedger(syncLogRepo),
		wixAdapter,
		integrationapp.NewSnapshotLoader(priceReader, stockReader),
		mapper,
		log,
		integrationapp.WithMetrics(syncMetrics),
		integrationapp.WithBulkRate(cfg.Sync.BulkRatePerSecond),
	)
	sweeper := integrationapp.NewSweeper(settingsService, itemRepo, syncService, cfg.Sync.SweepLookback, syncMetrics, log)

	// Catch-up sweep
	sweepLock, closeLock, err := cache.NewDistributedLock(ctx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	)
	if err != nil {
		log.Fatal("Failed to create sweep lock", zap.Error(err))
	}
	defer func() {
		if err := closeLock(); err != nil {
			log.Error("Error closing sweep lock", zap.Error(err))
		}
	}()

	catchupConfig := scheduler.DefaultCatchupConfig()
	if cfg.Sync.SweepSchedule != "" {
		catchupConfig.Schedule = cfg.Sync.SweepSchedule
	}
	if cfg.Sync.SweepLockTTL > 0 {
		catchupConfig.LockTTL = cfg.Sync.SweepLockTTL
	}
	catchup, err := scheduler.NewCatchupScheduler(catchupConfig, sweeper, sweepLock, log)
	if err != nil {
		log.Fatal("Failed to create catch-up scheduler", zap.Error(err))
	}
	if cfg.Sync.SweepEnabled {
		if err := catchup.Start(ctx); err != nil {
			log.Fatal("Failed to start catch-up scheduler", zap.Error(err))
		}
	} else {
		log.Info("Catch-up sweep disabled")
	}

	// Item save hook
	eventBus := event.NewInMemoryEventBus(log, event.WithWorkerPool(cfg.Sync.HookWorkers, cfg.Sync.HookQueueSize))
	itemSavedHandler := integrationapp.NewItemSavedHandler(itemRepo, syncService, log)
	eventBus.Subscribe(itemSavedHandler, itemSavedHandler.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var authMiddleware gin.HandlerFunc
	jwtService := auth.NewJWTService(cfg.JWT)
	if jwtService.Enabled() {
		authMiddleware = middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
			Validator: jwtService,
			Logger:    log,
		})
	} else {
		log.Warn("JWT secret not set, admin API is unauthenticated")
	}

	engine := router.NewEngine(router.EngineConfig{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: serviceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   []string{"/health", "/ready"},
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Auth:           authMiddleware,
	}, router.Handlers{
		Health:   handler.NewHealthHandler(db, version),
		Hook:     handler.NewHookHandler(eventBus),
		Sync:     handler.NewSyncHandler(syncService, catchup),
		Settings: handler.NewSettingsHandler(settingsService),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := catchup.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping catch-up scheduler", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited")
}
