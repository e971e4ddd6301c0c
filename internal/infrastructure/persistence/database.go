package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/erp/catalog-sync/internal/infrastructure/config"
	"github.com/erp/catalog-sync/internal/infrastructure/logger"
)

// Database is the PostgreSQL handle shared by the item readers, the sync
// ledger and the settings repository
type Database struct {
	DB *gorm.DB
}

// Option configures Open
type Option func(*openOptions)

type openOptions struct {
	gormLogger gormlogger.Interface
	log        *zap.Logger
	attempts   int
	retryDelay time.Duration
}

// WithLogger logs SQL through zap at the given level (silent, error, warn, info)
func WithLogger(zapLogger *zap.Logger, level string, slowThreshold time.Duration) Option {
	return func(o *openOptions) {
		o.log = zapLogger
		opts := []logger.GormLoggerOption{}
		if slowThreshold > 0 {
			opts = append(opts, logger.WithSlowThreshold(slowThreshold))
		}
		o.gormLogger = logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(level), opts...)
	}
}

// WithConnectRetry retries the initial ping, for databases that start
// alongside the service
func WithConnectRetry(attempts int, delay time.Duration) Option {
	return func(o *openOptions) {
		o.attempts = attempts
		o.retryDelay = delay
	}
}

// Open connects to PostgreSQL and applies the pool settings from cfg
func Open(ctx context.Context, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := &openOptions{
		gormLogger: gormlogger.Default.LogMode(gormlogger.Silent),
		log:        zap.NewNop(),
		attempts:   1,
	}
	for _, opt := range opts {
		opt(o)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 o.gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		DisableAutomaticPing:   true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	applyPool(sqlDB, cfg)

	if err := pingWithRetry(ctx, sqlDB, o); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &Database{DB: db}, nil
}

func applyPool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

func pingWithRetry(ctx context.Context, sqlDB *sql.DB, o *openOptions) error {
	attempts := max(o.attempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = sqlDB.PingContext(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		o.log.Warn("Database not reachable, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-time.After(o.retryDelay):
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", attempts, err)
}

// Close closes the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks that the database answers
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// PoolStats is the connection pool snapshot reported by the readiness probe
type PoolStats struct {
	Open    int   `json:"open"`
	InUse   int   `json:"in_use"`
	Idle    int   `json:"idle"`
	MaxOpen int   `json:"max_open"`
	Waits   int64 `json:"waits"`
}

// PoolStats returns the current pool usage
func (d *Database) PoolStats() (PoolStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return PoolStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	s := sqlDB.Stats()
	return PoolStats{
		Open:    s.OpenConnections,
		InUse:   s.InUse,
		Idle:    s.Idle,
		MaxOpen: s.MaxOpenConnections,
		Waits:   s.WaitCount,
	}, nil
}
