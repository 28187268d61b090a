// Package env resolves settings from the process environment and an
// optional .env file, using viper. Process variables win over the file.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// DefaultDotEnv is the file read from the working directory.
const DefaultDotEnv = ".env"

// Prefix is prepended to settings keys to form override variables.
const Prefix = domain.EnvPrefix

// Ensure Overlay implements the interface.
var _ driven.EnvSource = (*Overlay)(nil)

// Overlay is a viper instance holding the .env values with AutomaticEnv
// layered on top.
type Overlay struct {
	v *viper.Viper
}

// New reads dotenvPath when it exists. An empty path means ".env".
func New(dotenvPath string) (*Overlay, error) {
	if dotenvPath == "" {
		dotenvPath = DefaultDotEnv
	}

	v := viper.New()
	v.AutomaticEnv()

	if _, err := os.Stat(dotenvPath); err == nil {
		v.SetConfigFile(dotenvPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", dotenvPath, err)
		}
		logger.Debug("env: loaded %s", dotenvPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking %s: %w", dotenvPath, err)
	}

	return &Overlay{v: v}, nil
}

// Lookup returns the value of name from the environment, then the .env file.
// Empty values count as unset.
func (o *Overlay) Lookup(name string) (string, bool) {
	key := strings.ToLower(name)
	if !o.v.IsSet(key) {
		return "", false
	}
	val := strings.TrimSpace(o.v.GetString(key))
	return val, val != ""
}

// KeyVar maps a settings key to its override variable.
func KeyVar(key string) string {
	return domain.SettingEnvVar(key)
}

// Map is an EnvSource over a fixed map, for tests and flag overrides.
type Map map[string]string

// Lookup returns m[name] when non-empty.
func (m Map) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok && v != ""
}
