package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "pnpvision"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PNPVISION"
)

// Loader handles loading configuration from files, environment variables,
// and bound flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so cobra flag
// bindings take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// SetConfigFile points the loader at an explicit config file instead of
// the search paths.
func (l *Loader) SetConfigFile(path string) {
	l.v.SetConfigFile(path)
}

// Load reads configuration from file, environment, and defaults. A missing
// config file is not an error; defaults and environment apply.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")

	l.addConfigPaths()
	l.setupEnvironment()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "pnpvision"))
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/pnpvision")
}

func (l *Loader) setupEnvironment() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("log_level", "info")

	l.v.SetDefault("camera.name", "sim")
	l.v.SetDefault("camera.width", 640)
	l.v.SetDefault("camera.height", 480)
	l.v.SetDefault("camera.fps", 10.0)
	l.v.SetDefault("camera.settle_ms", 50)
	l.v.SetDefault("camera.unit", "mm")
	l.v.SetDefault("camera.units_per_pixel_x", 0.05)
	l.v.SetDefault("camera.units_per_pixel_y", 0.05)
	l.v.SetDefault("camera.default_z", 0.0)
	l.v.SetDefault("camera.safe_z", 20.0)
	l.v.SetDefault("camera.light_off_delay_ms", 250)

	l.v.SetDefault("server.host", "127.0.0.1")
	l.v.SetDefault("server.port", 8520)
}
