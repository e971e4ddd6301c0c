package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/catalog-sync/internal/domain/integration"
)

// SyncLogModel is the persistence model for a SyncLogEntry.
// Seq breaks ties between entries written within the same timestamp.
type SyncLogModel struct {
	Seq             int64                  `gorm:"primaryKey;autoIncrement"`
	ID              uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex"`
	ItemCode        string                 `gorm:"type:varchar(140);not null;index:idx_sync_logs_item_status_time,priority:1"`
	Status          integration.SyncStatus `gorm:"type:varchar(20);not null;index:idx_sync_logs_item_status_time,priority:2"`
	RemoteProductID string                 `gorm:"type:varchar(100)"`
	ErrorMessage    string                 `gorm:"type:text"`
	SyncedAt        time.Time              `gorm:"not null;index:idx_sync_logs_item_status_time,priority:3"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLogEntry
func (m *SyncLogModel) ToDomain() *integration.SyncLogEntry {
	return &integration.SyncLogEntry{
		ID:              m.ID,
		ItemCode:        m.ItemCode,
		Status:          integration.NormalizeSyncStatus(string(m.Status)),
		RemoteProductID: m.RemoteProductID,
		ErrorMessage:    m.ErrorMessage,
		SyncedAt:        m.SyncedAt,
	}
}

// SyncLogModelFromDomain creates a new persistence model from a domain SyncLogEntry
func SyncLogModelFromDomain(e *integration.SyncLogEntry) *SyncLogModel {
	return &SyncLogModel{
		ID:              e.ID,
		ItemCode:        e.ItemCode,
		Status:          integration.NormalizeSyncStatus(string(e.Status)),
		RemoteProductID: e.RemoteProductID,
		ErrorMessage:    e.ErrorMessage,
		SyncedAt:        e.SyncedAt.UTC(),
	}
}

// SettingsSingletonID is the primary key of the only settings row
const SettingsSingletonID = 1

// SyncSettingsModel is the persistence model for SyncSettings.
// APIKey may hold ciphertext; the repository decides.
type SyncSettingsModel struct {
	ID               int        `gorm:"primaryKey;autoIncrement:false"`
	Enabled          bool       `gorm:"not null;default:false"`
	SiteID           string     `gorm:"type:varchar(100)"`
	APIKey           string     `gorm:"type:text"`
	ConnectionStatus string     `gorm:"type:text"`
	LastTestedAt     *time.Time
	UpdatedAt        time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncSettingsModel) TableName() string {
	return "sync_settings"
}

// ToDomain converts the persistence model to domain SyncSettings
func (m *SyncSettingsModel) ToDomain() *integration.SyncSettings {
	return &integration.SyncSettings{
		Enabled:          m.Enabled,
		SiteID:           m.SiteID,
		APIKey:           m.APIKey,
		ConnectionStatus: m.ConnectionStatus,
		LastTestedAt:     m.LastTestedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// SyncSettingsModelFromDomain creates a persistence model for the singleton row
func SyncSettingsModelFromDomain(s *integration.SyncSettings) *SyncSettingsModel {
	return &SyncSettingsModel{
		ID:               SettingsSingletonID,
		Enabled:          s.Enabled,
		SiteID:           s.SiteID,
		APIKey:           s.APIKey,
		ConnectionStatus: s.ConnectionStatus,
		LastTestedAt:     s.LastTestedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// AllModels lists every model for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&ItemModel{},
		&ItemPriceModel{},
		&BinModel{},
		&SyncLogModel{},
		&SyncSettingsModel{},
	}
}
