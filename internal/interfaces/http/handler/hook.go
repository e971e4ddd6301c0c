package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/domain/shared"
	"github.com/erp/catalog-sync/internal/infrastructure/logger"
	"github.com/erp/catalog-sync/internal/interfaces/http/dto"
)

// HookHandler receives the host ERP's item save notifications
type HookHandler struct {
	BaseHandler
	publisher shared.EventPublisher
}

// NewHookHandler creates a new HookHandler
func NewHookHandler(publisher shared.EventPublisher) *HookHandler {
	return &HookHandler{publisher: publisher}
}

// ItemSavedResponse acknowledges a hook call
type ItemSavedResponse struct {
	Accepted bool   `json:"accepted"`
	ItemCode string `json:"item_code"`
}

// ItemSaved publishes an ItemSaved event and answers 202. Sync results are
// only visible in the ledger, never in this response.
func (h *HookHandler) ItemSaved(c *gin.Context) {
	var req dto.ItemSavedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	event := integration.NewItemSavedEvent(req.ItemCode)
	if err := h.publisher.Publish(c.Request.Context(), event); err != nil {
		logger.GetGinLogger(c).Warn("Failed to publish item saved event",
			zap.String("item_code", req.ItemCode),
			zap.Error(err),
		)
	}
	h.Accepted(c, ItemSavedResponse{Accepted: true, ItemCode: req.ItemCode})
}
