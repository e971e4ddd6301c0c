package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/catalog-sync/internal/infrastructure/persistence"
)

type pingerFunc func() error

func (f pingerFunc) Ping() error { return f() }

type pooledDB struct{ stats persistence.PoolStats }

func (pooledDB) Ping() error { return nil }

func (p pooledDB) PoolStats() (persistence.PoolStats, error) { return p.stats, nil }

func healthRoutes(h *HealthHandler) func(r *gin.Engine) {
	return func(r *gin.Engine) {
		r.GET("/health", h.Health)
		r.GET("/ready", h.Ready)
	}
}

func TestHealthHandler_Health(t *testing.T) {
	h := NewHealthHandler(pingerFunc(func() error { return errors.New("down") }), "1.2.3")

	w := serve(t, healthRoutes(h), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, decode(t, w))
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
}

func TestHealthHandler_Ready(t *testing.T) {
	t.Run("database up", func(t *testing.T) {
		h := NewHealthHandler(pingerFunc(func() error { return nil }), "dev")
		w := serve(t, healthRoutes(h), http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, decode(t, w))
		assert.Equal(t, "ready", data["status"])
		assert.NotContains(t, data, "database")
	})

	t.Run("reports pool usage", func(t *testing.T) {
		h := NewHealthHandler(pooledDB{stats: persistence.PoolStats{Open: 3, InUse: 1, Idle: 2, MaxOpen: 10}}, "dev")
		w := serve(t, healthRoutes(h), http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		pool, ok := dataMap(t, decode(t, w))["database"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 3, pool["open"])
		assert.EqualValues(t, 10, pool["max_open"])
	})

	t.Run("database down", func(t *testing.T) {
		h := NewHealthHandler(pingerFunc(func() error { return errors.New("refused") }), "dev")
		w := serve(t, healthRoutes(h), http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "ERR_NOT_READY", decode(t, w).Error.Code)
	})
}
