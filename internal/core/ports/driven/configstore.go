package driven

// ConfigStore is the persisted layer of the settings, config.toml by
// default. Keys are flat dot paths such as "llm.provider". Values keep the
// type they were stored with; TOML integers read back as int64.
type ConfigStore interface {
	Get(key string) (any, bool)

	// Set and Unset write through to storage before returning.
	Set(key string, value any) error
	Unset(key string) error

	// Keys lists the stored keys in sorted order.
	Keys() []string

	// Path locates the backing file for display.
	Path() string
}
