package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/domain/shared"
	"github.com/erp/catalog-sync/internal/infrastructure/scheduler"
	"github.com/erp/catalog-sync/internal/interfaces/http/dto"
)

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"domain not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"domain invalid input", shared.ErrInvalidInput.WithCause(fmt.Errorf("bad")), http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"item not found", fmt.Errorf("load: %w", integration.ErrItemNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"sweep running", scheduler.ErrSweepInProgress, http.StatusConflict, dto.ErrCodeConflict},
		{"remote down", &integration.TransportError{Op: "test", Err: fmt.Errorf("refused")}, http.StatusBadGateway, dto.ErrCodeRemoteUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := serve(t, func(r *gin.Engine) {
				r.GET("/x", func(c *gin.Context) { h.HandleError(c, tt.err) })
			}, http.MethodGet, "/x", nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
		})
	}
}
