package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/persistence/models"
)

// SecretCipher seals the API key before it is written
type SecretCipher interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

// GormSyncSettingsRepository implements integration.SettingsRepository using GORM
type GormSyncSettingsRepository struct {
	db     *gorm.DB
	cipher SecretCipher
}

// NewGormSyncSettingsRepository creates a new repository.
// A nil cipher stores the API key as plain text.
func NewGormSyncSettingsRepository(db *gorm.DB, cipher SecretCipher) *GormSyncSettingsRepository {
	return &GormSyncSettingsRepository{db: db, cipher: cipher}
}

// Load reads the singleton settings row
func (r *GormSyncSettingsRepository) Load(ctx context.Context) (*integration.SyncSettings, error) {
	var model models.SyncSettingsModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", models.SettingsSingletonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSettingsNotFound
		}
		return nil, err
	}
	settings := model.ToDomain()
	if r.cipher != nil {
		key, err := r.cipher.Open(model.APIKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt api key: %w", err)
		}
		settings.APIKey = key
	}
	return settings, nil
}

// Save upserts the singleton settings row
func (r *GormSyncSettingsRepository) Save(ctx context.Context, settings *integration.SyncSettings) error {
	model := models.SyncSettingsModelFromDomain(settings)
	if r.cipher != nil {
		sealed, err := r.cipher.Seal(settings.APIKey)
		if err != nil {
			return fmt.Errorf("encrypt api key: %w", err)
		}
		model.APIKey = sealed
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

var _ integration.SettingsRepository = (*GormSyncSettingsRepository)(nil)
