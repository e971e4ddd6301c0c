package integration

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrSettingsNotFound = errors.New("integration: sync settings not found")

// SettingsDefaults seed the singleton settings on first initialization
type SettingsDefaults struct {
	Enabled bool
	SiteID  string
	APIKey  string
}

// SyncSettings is the singleton remote catalog configuration
type SyncSettings struct {
	Enabled          bool
	SiteID           string
	APIKey           string
	ConnectionStatus string
	LastTestedAt     *time.Time
	UpdatedAt        time.Time
}

// NewDefaultSyncSettings builds settings from defaults
func NewDefaultSyncSettings(d SettingsDefaults) *SyncSettings {
	return &SyncSettings{
		Enabled:   d.Enabled,
		SiteID:    strings.TrimSpace(d.SiteID),
		APIKey:    strings.TrimSpace(d.APIKey),
		UpdatedAt: time.Now().UTC(),
	}
}

// ApplyDefaults fills a blank site id
func (s *SyncSettings) ApplyDefaults(defaultSiteID string) {
	if strings.TrimSpace(s.SiteID) == "" {
		s.SiteID = strings.TrimSpace(defaultSiteID)
	}
}

// Update changes the editable fields. A nil apiKey keeps the stored key.
// Changing the key or site id clears the cached connection test result.
// It returns true when the credentials changed.
func (s *SyncSettings) Update(enabled bool, siteID string, apiKey *string) bool {
	siteID = strings.TrimSpace(siteID)
	changed := siteID != s.SiteID
	s.SiteID = siteID
	if apiKey != nil {
		key := strings.TrimSpace(*apiKey)
		if key != s.APIKey {
			changed = true
		}
		s.APIKey = key
	}
	s.Enabled = enabled
	if changed {
		s.ConnectionStatus = ""
		s.LastTestedAt = nil
	}
	s.UpdatedAt = time.Now().UTC()
	return changed
}

// HasCredential reports whether an API key is configured
func (s *SyncSettings) HasCredential() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// Credentials returns the credentials for remote calls
func (s *SyncSettings) Credentials() Credentials {
	return Credentials{SiteID: s.SiteID, APIKey: s.APIKey}
}

// RecordConnectionTest stores the outcome of a connection test
func (s *SyncSettings) RecordConnectionTest(result ConnectionResult, at time.Time) {
	at = at.UTC()
	s.ConnectionStatus = result.Message
	s.LastTestedAt = &at
	s.UpdatedAt = at
}

// MaskedAPIKey returns the key with all but the last four characters hidden
func (s *SyncSettings) MaskedAPIKey() string {
	key := s.APIKey
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

// Clone returns a copy safe to hand to callers
func (s *SyncSettings) Clone() *SyncSettings {
	c := *s
	if s.LastTestedAt != nil {
		t := *s.LastTestedAt
		c.LastTestedAt = &t
	}
	return &c
}

// SettingsRepository persists the singleton settings
type SettingsRepository interface {
	// Load returns ErrSettingsNotFound when no settings exist yet
	Load(ctx context.Context) (*SyncSettings, error)
	Save(ctx context.Context, settings *SyncSettings) error
}
