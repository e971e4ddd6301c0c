package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appintegration "github.com/erp/catalog-sync/internal/application/integration"
)

// SettingsManager reads and changes the sync settings
type SettingsManager interface {
	Get(ctx context.Context) (appintegration.SettingsView, error)
	Update(ctx context.Context, req appintegration.UpdateSettingsRequest) (appintegration.SettingsView, error)
	TestConnection(ctx context.Context) (appintegration.ConnectionTestResult, error)
}

// SettingsHandler serves the settings endpoints
type SettingsHandler struct {
	BaseHandler
	settings SettingsManager
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings SettingsManager) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get returns the settings with the API key masked
func (h *SettingsHandler) Get(c *gin.Context) {
	view, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Update changes the settings. Omitting api_key keeps the stored key.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req appintegration.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	view, err := h.settings.Update(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// TestConnection probes the remote catalog and persists the outcome.
// A failed probe is a 200 with success=false.
func (h *SettingsHandler) TestConnection(c *gin.Context) {
	result, err := h.settings.TestConnection(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
