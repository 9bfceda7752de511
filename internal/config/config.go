// Package config loads spritely settings from defaults, an optional YAML
// file and SPRITELY_* environment variables, in increasing precedence.
// Command-line flags are applied on top by the caller.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "spritely.yaml"

// EnvPrefix prefixes every environment variable that overrides a setting.
const EnvPrefix = "SPRITELY"

// Config holds the settings shared by every command.
type Config struct {
	Padding  int           `mapstructure:"padding"`
	Debounce time.Duration `mapstructure:"debounce"`
	Debug    bool          `mapstructure:"debug"`
	Retry    RetryConfig   `mapstructure:"retry"`
}

// RetryConfig bounds the retries of filesystem calls that fail on lock or
// permission contention.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

// Load reads configuration. An empty path falls back to DefaultFile, which may
// be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Padding:  1,
		Debounce: 500 * time.Millisecond,
		Retry: RetryConfig{
			Attempts: 10,
			Delay:    100 * time.Millisecond,
		},
	}
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	switch {
	case c.Padding < 0:
		return errors.Errorf("padding must be >= 0, got %d", c.Padding)
	case c.Debounce <= 0:
		return errors.Errorf("debounce must be positive, got %s", c.Debounce)
	case c.Retry.Attempts < 1:
		return errors.Errorf("retry.attempts must be >= 1, got %d", c.Retry.Attempts)
	case c.Retry.Delay < 0:
		return errors.Errorf("retry.delay must be >= 0, got %s", c.Retry.Delay)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("padding", d.Padding)
	v.SetDefault("debounce", d.Debounce)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("retry.attempts", d.Retry.Attempts)
	v.SetDefault("retry.delay", d.Retry.Delay)
}
