package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/cache"
)

const (
	// DefaultSweepLockKey is the lock shared by every process running sweeps
	DefaultSweepLockKey = "catchup-sweep"

	releaseTimeout = 5 * time.Second
)

var (
	// ErrSweepInProgress means another run, here or in another process, holds the sweep lock
	ErrSweepInProgress = errors.New("catch-up sweep already in progress")
	ErrInvalidConfig   = errors.New("invalid scheduler configuration")
)

// Sweeper runs one catch-up pass
type Sweeper interface {
	Sweep(ctx context.Context) integration.SweepReport
}

// CatchupConfig holds configuration for the catch-up scheduler
type CatchupConfig struct {
	// Schedule is a standard cron spec or descriptor such as @hourly
	Schedule string
	LockKey  string
	// LockTTL bounds how long a crashed process can block other sweeps. A
	// running sweep renews the lock every third of it.
	LockTTL time.Duration
}

// DefaultCatchupConfig returns the hourly schedule
func DefaultCatchupConfig() CatchupConfig {
	return CatchupConfig{
		Schedule: "@hourly",
		LockKey:  DefaultSweepLockKey,
		LockTTL:  55 * time.Minute,
	}
}

// Validate validates the configuration
func (c CatchupConfig) Validate() error {
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, c.Schedule, err)
	}
	if c.LockKey == "" {
		return fmt.Errorf("%w: lock key is required", ErrInvalidConfig)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("%w: lock ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

// CatchupScheduler runs the sweeper on a cron schedule. Each run holds a
// distributed lock so only one process sweeps at a time.
type CatchupScheduler struct {
	config  CatchupConfig
	sweeper Sweeper
	lock    cache.DistributedLock
	logger  *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cron      *cron.Cron
	cancel    context.CancelFunc

	// in-process guard; the distributed lock covers other processes
	inFlight atomic.Bool
}

// NewCatchupScheduler creates a scheduler. A nil lock disables cross-process locking.
func NewCatchupScheduler(config CatchupConfig, sweeper Sweeper, lock cache.DistributedLock, logger *zap.Logger) (*CatchupScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if sweeper == nil {
		return nil, fmt.Errorf("%w: sweeper is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatchupScheduler{
		config:  config,
		sweeper: sweeper,
		lock:    lock,
		logger:  logger.Named("catchup_scheduler"),
	}, nil
}

// Start registers the schedule and starts the cron runner
func (s *CatchupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	schedule, err := cron.ParseStandard(s.config.Schedule)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithLogger(cronLogger{logger: s.logger}))
	c.Schedule(schedule, cron.FuncJob(func() {
		if _, err := s.run(runCtx); err != nil && !errors.Is(err, ErrSweepInProgress) {
			s.logger.Error("Scheduled sweep failed", zap.Error(err))
		}
	}))
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.isRunning = true

	s.logger.Info("Catch-up scheduler started",
		zap.String("schedule", s.config.Schedule),
		zap.Time("next_run", schedule.Next(time.Now())),
	)
	return nil
}

// Stop stops the cron runner and waits for an in-flight sweep to return
func (s *CatchupScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	cancel()
	done := c.Stop()

	select {
	case <-done.Done():
		s.logger.Info("Catch-up scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the cron runner is active
func (s *CatchupScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow performs one sweep immediately under the sweep lock
func (s *CatchupScheduler) RunNow(ctx context.Context) (integration.SweepReport, error) {
	return s.run(ctx)
}

func (s *CatchupScheduler) run(ctx context.Context) (integration.SweepReport, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return integration.SweepReport{}, ErrSweepInProgress
	}
	defer s.inFlight.Store(false)

	if s.lock != nil {
		token, ok, err := s.lock.TryAcquire(ctx, s.config.LockKey, s.config.LockTTL)
		if err != nil {
			return integration.SweepReport{}, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			s.logger.Info("Sweep skipped, lock held elsewhere", zap.String("lock_key", s.config.LockKey))
			return integration.SweepReport{}, ErrSweepInProgress
		}
		defer s.release(ctx, token)

		var stopRenew func()
		ctx, stopRenew = s.keepLock(ctx, token)
		defer stopRenew()
	}

	report := s.sweeper.Sweep(ctx)
	s.logger.Info("Catch-up sweep finished",
		zap.Int("selected", report.Selected),
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// keepLock renews the sweep lock until stop is called. When a renewal finds
// the lock lost, the returned context is cancelled so the sweep stops before
// the next item.
func (s *CatchupScheduler) keepLock(ctx context.Context, token string) (context.Context, func()) {
	sweepCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(max(s.config.LockTTL/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
			}
			err := s.lock.Extend(context.WithoutCancel(ctx), s.config.LockKey, token, s.config.LockTTL)
			switch {
			case errors.Is(err, cache.ErrLockNotHeld):
				s.logger.Error("Sweep lock lost, stopping sweep", zap.String("lock_key", s.config.LockKey))
				cancel(err)
				return
			case err != nil:
				s.logger.Warn("Failed to renew sweep lock", zap.Error(err))
			}
		}
	}()
	return sweepCtx, func() {
		close(done)
		wg.Wait()
		cancel(nil)
	}
}

func (s *CatchupScheduler) release(ctx context.Context, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.lock.Release(releaseCtx, s.config.LockKey, token); err != nil {
		s.logger.Warn("Failed to release sweep lock", zap.Error(err))
	}
}

// cronLogger routes robfig/cron diagnostics through zap
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
