package integration

import (
	"time"

	"github.com/erp/catalog-sync/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Sync results
// ---------------------------------------------------------------------------

// ManualSyncResult is returned by a manual single-item sync. Warning is set
// when the remote sync succeeded but was not recorded.
type ManualSyncResult struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Action   SyncAction    `json:"action,omitempty"`
	Status   OutcomeStatus `json:"status,omitempty"`
	RemoteID string        `json:"remote_product_id,omitempty"`
	Warning  string        `json:"warning,omitempty"`
}

// BulkSyncResult is returned by a sync of every sales item. UnrecordedCount
// counts synced items whose Success entry could not be written.
type BulkSyncResult struct {
	SuccessCount    int    `json:"success_count"`
	ErrorCount      int    `json:"error_count"`
	SkippedCount    int    `json:"skipped_count"`
	UnrecordedCount int    `json:"unrecorded_count"`
	Message         string `json:"message"`
}

// ConnectionTestResult is returned by a connection test
type ConnectionTestResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	TestedAt time.Time `json:"tested_at"`
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// SettingsView is the settings representation with the API key masked
type SettingsView struct {
	Enabled          bool       `json:"enabled"`
	SiteID           string     `json:"site_id"`
	APIKeyMasked     string     `json:"api_key"`
	HasAPIKey        bool       `json:"has_api_key"`
	ConnectionStatus string     `json:"connection_status"`
	LastTestedAt     *time.Time `json:"last_tested_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// UpdateSettingsRequest changes the sync settings. A nil APIKey keeps the stored key.
type UpdateSettingsRequest struct {
	Enabled bool    `json:"enabled"`
	SiteID  string  `json:"site_id" binding:"max=100"`
	APIKey  *string `json:"api_key,omitempty"`
}

// ToSettingsView converts domain settings to a view
func ToSettingsView(s *integration.SyncSettings) SettingsView {
	return SettingsView{
		Enabled:          s.Enabled,
		SiteID:           s.SiteID,
		APIKeyMasked:     s.MaskedAPIKey(),
		HasAPIKey:        s.HasCredential(),
		ConnectionStatus: s.ConnectionStatus,
		LastTestedAt:     s.LastTestedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

// SyncLogResponse is one ledger entry in API responses
type SyncLogResponse struct {
	ID              string                 `json:"id"`
	ItemCode        string                 `json:"item_code"`
	Status          integration.SyncStatus `json:"status"`
	RemoteProductID string                 `json:"remote_product_id,omitempty"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	SyncedAt        time.Time              `json:"synced_at"`
}

// ToSyncLogResponses converts ledger entries to responses
func ToSyncLogResponses(entries []integration.SyncLogEntry) []SyncLogResponse {
	out := make([]SyncLogResponse, len(entries))
	for i, e := range entries {
		out[i] = SyncLogResponse{
			ID:              e.ID.String(),
			ItemCode:        e.ItemCode,
			Status:          e.Status,
			RemoteProductID: e.RemoteProductID,
			ErrorMessage:    e.ErrorMessage,
			SyncedAt:        e.SyncedAt,
		}
	}
	return out
}

// SweepReportResponse is a sweep report in API responses
type SweepReportResponse struct {
	Since      time.Time `json:"since"`
	Selected   int       `json:"selected"`
	Synced     int       `json:"synced"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	DurationMs int64     `json:"duration_ms"`
}

// ToSweepReportResponse converts a sweep report
func ToSweepReportResponse(r integration.SweepReport) SweepReportResponse {
	return SweepReportResponse{
		Since:      r.Since,
		Selected:   r.Selected,
		Synced:     r.Synced,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		DurationMs: r.Duration.Milliseconds(),
	}
}
