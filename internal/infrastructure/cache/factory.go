package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/infrastructure/config"
)

// LockFactoryOption configures NewDistributedLock
type LockFactoryOption func(*lockFactory)

type lockFactory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockFactoryOption {
	return func(f *lockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-process lock. Default is true.
func WithInMemoryFallback(allow bool) LockFactoryOption {
	return func(f *lockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDistributedLock returns a Redis lock when Redis is configured and
// reachable, and an in-process lock otherwise. The returned close function
// is never nil.
func NewDistributedLock(ctx context.Context, cfg config.RedisConfig, opts ...LockFactoryOption) (DistributedLock, func() error, error) {
	f := &lockFactory{logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(f)
	}
	noop := func() error { return nil }

	if !cfg.Enabled() {
		f.logger.Info("Redis not configured, using in-memory sweep lock")
		return NewInMemoryLock(), noop, nil
	}

	lock, err := NewRedisLock(ctx, RedisConfig{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB})
	if err == nil {
		f.logger.Info("Using Redis sweep lock", zap.String("addr", cfg.Addr()))
		return lock, lock.Close, nil
	}

	if !f.allowInMemoryFallback {
		return nil, noop, fmt.Errorf("redis required for sweep lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory sweep lock. "+
		"Sweeps in separate processes will not exclude each other.",
		zap.Error(err),
	)
	return NewInMemoryLock(), noop, nil
}
