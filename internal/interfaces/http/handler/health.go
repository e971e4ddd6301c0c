package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erp/catalog-sync/internal/infrastructure/persistence"
	"github.com/erp/catalog-sync/internal/interfaces/http/dto"
)

// Pinger checks a dependency
type Pinger interface {
	Ping() error
}

// PoolReporter is implemented by dependencies that expose pool usage
type PoolReporter interface {
	PoolStats() (persistence.PoolStats, error)
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	db        Pinger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. db may be nil.
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Health answers 200 while the process is serving
func (h *HealthHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:    "ok",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// ReadyResponse is the readiness payload
type ReadyResponse struct {
	Status   string                `json:"status"`
	Database *persistence.PoolStats `json:"database,omitempty"`
}

// Ready answers 503 when the database cannot be reached
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := ReadyResponse{Status: "ready"}
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeNotReady, "Database is unreachable")
			return
		}
		if reporter, ok := h.db.(PoolReporter); ok {
			if stats, err := reporter.PoolStats(); err == nil {
				resp.Database = &stats
			}
		}
	}
	h.Success(c, resp)
}
