package drive

import (
	"fmt"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Defaults for the Drive connector.
const (
	DefaultPageSize     = 100
	DefaultPollInterval = 5 * time.Minute
	// MaxFileSize caps downloads and exports at 5 MiB.
	MaxFileSize = 5 * 1024 * 1024
)

// Config holds Google Drive connector configuration.
type Config struct {
	// FolderID is the Drive folder whose direct children are indexed.
	FolderID string
	// ServiceAccountFile is the path to the service-account JSON key.
	ServiceAccountFile string
	// PageSize is the page size for files.list.
	PageSize int64
	// PollInterval is how often Watch re-lists the folder.
	PollInterval time.Duration
	// MaxFileSize rejects larger files.
	MaxFileSize int64
}

// ConfigFromSettings builds a Config from the source settings.
func ConfigFromSettings(s domain.SourceSettings) Config {
	cfg := Config{
		FolderID:           s.DriveFolderID,
		ServiceAccountFile: s.ServiceAccountFile,
		PollInterval:       s.PollInterval,
	}
	cfg.applyDefaults()
	return cfg
}

// Validate reports missing required fields.
func (c Config) Validate() error {
	if c.FolderID == "" {
		return fmt.Errorf("%w: %s", domain.ErrConfigMissing, domain.EnvDriveFolderID)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = MaxFileSize
	}
}
