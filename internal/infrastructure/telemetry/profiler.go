package telemetry

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerConfig configures continuous profiling through Pyroscope
type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string
	ApplicationName string
	Version         string
}

var (
	errProfilerAddress = errors.New("profiler: server address is required")
	errProfilerName    = errors.New("profiler: application name is required")
)

// profileTypes covers the sweep's CPU time and the memory held by bulk syncs
var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
}

// Profiler is a running Pyroscope session. The zero value is a stopped profiler.
type Profiler struct {
	session  *pyroscope.Profiler
	stopOnce sync.Once
	stopErr  error
}

// StartProfiler starts a profiling session when cfg.Enabled is set
func StartProfiler(cfg ProfilerConfig, log *zap.Logger) (*Profiler, error) {
	if !cfg.Enabled {
		return &Profiler{}, nil
	}
	switch {
	case cfg.ServerAddress == "":
		return nil, errProfilerAddress
	case cfg.ApplicationName == "":
		return nil, errProfilerName
	}

	tags := map[string]string{}
	if cfg.Version != "" {
		tags["version"] = cfg.Version
	}
	if host, err := os.Hostname(); err == nil {
		tags["hostname"] = host
	}

	session, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          log.Named("pyroscope").Sugar(),
		Tags:            tags,
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("profiler: %w", err)
	}
	log.Info("Profiler started", zap.String("server_address", cfg.ServerAddress))
	return &Profiler{session: session}, nil
}

// Running reports whether profiles are being uploaded
func (p *Profiler) Running() bool {
	return p != nil && p.session != nil
}

// Stop flushes the last profiles. It may be called more than once.
func (p *Profiler) Stop() error {
	if !p.Running() {
		return nil
	}
	p.stopOnce.Do(func() {
		if err := p.session.Stop(); err != nil {
			p.stopErr = fmt.Errorf("profiler stop: %w", err)
		}
	})
	return p.stopErr
}
