package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/infrastructure/logger"
	"github.com/erp/catalog-sync/internal/interfaces/http/handler"
	"github.com/erp/catalog-sync/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Health   *handler.HealthHandler
	Hook     *handler.HookHandler
	Sync     *handler.SyncHandler
	Settings *handler.SettingsHandler
}

// EngineConfig configures NewEngine
type EngineConfig struct {
	Logger         *zap.Logger
	Tracing        middleware.TracingConfig
	MaxBodySize    int64
	TrustedProxies []string
	// Auth guards every /api route. Nil disables authentication.
	Auth gin.HandlerFunc
}

// NewEngine builds the gin engine with the global middleware chain
// (request id, tracing, logging, recovery, body limit) and all routes.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		cfg.Logger.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(cfg.Tracing),
		middleware.SpanEnricher(),
		logger.GinMiddleware(cfg.Logger, logger.WithQuietPaths("/health", "/ready")),
		logger.Recovery(cfg.Logger),
		middleware.BodyLimit(cfg.MaxBodySize),
	)

	engine.GET("/health", h.Health.Health)
	engine.GET("/ready", h.Health.Ready)

	var opts []RouterOption
	if cfg.Auth != nil {
		opts = append(opts, WithAPIMiddleware(cfg.Auth))
	}
	r := NewRouter(engine, opts...)

	r.Mount(
		NewDomainGroup("hooks", "/hooks").
			POST("/item-saved", h.Hook.ItemSaved),
		NewDomainGroup("sync", "/sync").
			POST("/items/:code", h.Sync.SyncItem).
			GET("/items/:code/logs", h.Sync.ItemLogs).
			POST("/all", h.Sync.SyncAll).
			POST("/sweep", h.Sync.Sweep),
		NewDomainGroup("settings", "/settings").
			GET("", h.Settings.Get).
			PUT("", h.Settings.Update).
			POST("/test-connection", h.Settings.TestConnection),
	)

	for _, rt := range r.Setup() {
		cfg.Logger.Debug("Route mounted",
			zap.String("group", rt.Group),
			zap.String("method", rt.Method),
			zap.String("path", rt.Path),
		)
	}
	return engine
}
