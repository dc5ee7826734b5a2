// Package config loads runtime settings from a file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/zoobzio/reflux/persist"
)

// EnvPrefix prefixes environment overrides, e.g. REFLUX_PERSIST_STORE_BACKEND.
const EnvPrefix = "REFLUX"

var validate = validator.New()

// Config holds runtime settings.
type Config struct {
	Persist    PersistConfig    `mapstructure:"persist"`
	TimeLogger TimeLoggerConfig `mapstructure:"timelogger"`
}

// PersistConfig configures state persistence.
type PersistConfig struct {
	Enabled            bool                `mapstructure:"enabled"`
	CheckpointInterval int                 `mapstructure:"checkpoint_interval" validate:"gte=1"`
	ErrorHistory       int                 `mapstructure:"error_history" validate:"gte=0"`
	Store              persist.StoreConfig `mapstructure:"store"`
}

// TimeLoggerConfig configures the timing middleware.
type TimeLoggerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from path, when non-empty, and from the
// environment, then validates it. The file format follows the extension:
// YAML, TOML and JSON are supported.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("persist.enabled", true)
	v.SetDefault("persist.checkpoint_interval", persist.DefaultCheckpointInterval)
	v.SetDefault("persist.error_history", 8)
	v.SetDefault("persist.store.backend", persist.BackendFile)
	v.SetDefault("persist.store.dir", "reflux-state")
	v.SetDefault("persist.store.path", "")
	v.SetDefault("persist.store.addr", "")
	v.SetDefault("persist.store.password", "")
	v.SetDefault("persist.store.db", 0)
	v.SetDefault("persist.store.prefix", "reflux")
	v.SetDefault("timelogger.enabled", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the struct tags of c.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// OpenStore opens the store described by the persist section.
func (c Config) OpenStore() (persist.Store, error) {
	return persist.OpenStore(c.Persist.Store)
}
