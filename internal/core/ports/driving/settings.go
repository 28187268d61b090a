package driving

import "github.com/custodia-labs/docrag/internal/core/domain"

// SettingsService resolves and edits application settings.
type SettingsService interface {
	// Get returns settings merged from defaults, the config file and the
	// environment.
	Get() (*domain.AppSettings, error)

	// Validate fails with domain.ErrConfigMissing when required settings
	// are absent.
	Validate() error

	// Set writes a single key to the config file.
	Set(key, value string) error

	// Lookup returns the resolved value of a key as text.
	Lookup(key string) (string, error)

	// Keys returns every settable key.
	Keys() []string

	// Override sets a value for this process only, winning over every
	// other source. Command-line flags use it.
	Override(key, value string) error

	// ConfigPath returns the settings file location.
	ConfigPath() string
}
