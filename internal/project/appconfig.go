// Package project loads and saves the tool configuration and records each
// packing run in its own output directory.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/piwi3910/Palletizer/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. PALLETIZER_PACK_SEED.
const EnvPrefix = "PALLETIZER"

// DefaultConfigDir returns the default directory for configuration.
// On all platforms this is ~/.palletizer/
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".palletizer")
}

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Loader resolves an AppConfig from, in increasing precedence: defaults,
// the config file, PALLETIZER_* environment variables and bound flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader seeded with DefaultAppConfig.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, model.DefaultAppConfig())
	return &Loader{v: v}
}

// BindFlag makes a command-line flag override a config key, for example
// "pack.seed". The flag only wins when it was set explicitly.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for config key %s", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads the config file at path, if any, and returns the merged
// configuration. A missing file is not an error; the format follows the
// file extension (json, yaml, toml).
func (l *Loader) Load(path string) (model.AppConfig, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			l.v.SetConfigFile(path)
			if err := l.v.ReadInConfig(); err != nil {
				return model.AppConfig{}, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return model.AppConfig{}, err
		}
	}

	var config model.AppConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return model.AppConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	// Ensure Exports is never nil
	if config.Exports == nil {
		config.Exports = []string{}
	}
	return config, nil
}

// LoadConfig reads an AppConfig from path with environment overrides.
// If the file does not exist, it returns the defaults with no error.
func LoadConfig(path string) (model.AppConfig, error) {
	return NewLoader().Load(path)
}

// SaveConfig persists an AppConfig to the given path as JSON.
// It creates any missing parent directories automatically.
func SaveConfig(path string, config model.AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// setDefaults registers every key so that environment variables and flags
// can override keys absent from the config file.
func setDefaults(v *viper.Viper, c model.AppConfig) {
	p := c.Pack
	v.SetDefault("pack.pallet_width", p.PalletWidth)
	v.SetDefault("pack.pallet_depth", p.PalletDepth)
	v.SetDefault("pack.pallet_height", p.PalletHeight)
	v.SetDefault("pack.pallet_capacity", p.PalletCapacity)
	v.SetDefault("pack.stack_height", p.StackHeight)
	v.SetDefault("pack.mode", string(p.Mode))
	v.SetDefault("pack.iterations", p.Iterations)
	v.SetDefault("pack.workers", p.Workers)
	v.SetDefault("pack.seed", p.Seed)
	v.SetDefault("pack.alternates", p.Alternates)
	v.SetDefault("pack.migrate", p.Migrate)
	v.SetDefault("pack.solver_time_limit", p.SolverTimeLimit)

	v.SetDefault("output_dir", c.OutputDir)
	v.SetDefault("exports", c.Exports)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_file", c.LogFile)
	v.SetDefault("metrics_file", c.MetricsFile)
}
