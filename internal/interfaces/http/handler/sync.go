package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appintegration "github.com/erp/catalog-sync/internal/application/integration"
	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/interfaces/http/dto"
)

// SyncRunner is the sync surface the handler drives
type SyncRunner interface {
	SyncItemByCode(ctx context.Context, code string) appintegration.ManualSyncResult
	SyncAll(ctx context.Context) (appintegration.BulkSyncResult, error)
	ItemLogs(ctx context.Context, code string, limit int) ([]appintegration.SyncLogResponse, error)
}

// SweepRunner runs one catch-up sweep under the sweep lock
type SweepRunner interface {
	RunNow(ctx context.Context) (integration.SweepReport, error)
}

// SyncHandler exposes manual, bulk and sweep syncs plus the ledger
type SyncHandler struct {
	BaseHandler
	sync  SyncRunner
	sweep SweepRunner
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sync SyncRunner, sweep SweepRunner) *SyncHandler {
	return &SyncHandler{sync: sync, sweep: sweep}
}

// SyncItem syncs one item now. The outcome is in the body; a failed sync is
// still a 200 with success=false.
func (h *SyncHandler) SyncItem(c *gin.Context) {
	var uri dto.ItemCodeURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	h.Success(c, h.sync.SyncItemByCode(c.Request.Context(), uri.Code))
}

// SyncAll syncs every sales item
func (h *SyncHandler) SyncAll(c *gin.Context) {
	result, err := h.sync.SyncAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Sweep runs one catch-up sweep. A sweep already running answers 409.
func (h *SyncHandler) Sweep(c *gin.Context) {
	report, err := h.sweep.RunNow(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appintegration.ToSweepReportResponse(report))
}

// ItemLogs lists an item's ledger entries, newest first
func (h *SyncHandler) ItemLogs(c *gin.Context) {
	var uri dto.ItemCodeURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	var query dto.LimitQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	logs, err := h.sync.ItemLogs(c.Request.Context(), uri.Code, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, logs)
}
