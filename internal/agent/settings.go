// Package agent runs a boot session: it discovers disks, loads the boot
// configuration and hands both to the interactive console.
package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"neoboot/internal/bootcfg"
	"neoboot/internal/console"
)

// EnvPrefix prefixes every environment override, e.g. NEOBOOT_ESP_DIR.
const EnvPrefix = "NEOBOOT"

// ErrInvalidSettings is returned by LoadSettings for values that cannot be used.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings configures the agent on a host.
type Settings struct {
	Title         string   `yaml:"title"          mapstructure:"title"`
	ESPDir        string   `yaml:"esp_dir"        mapstructure:"esp_dir"`
	ConfigPath    string   `yaml:"config_path"    mapstructure:"config_path"`
	Disks         []string `yaml:"disks"          mapstructure:"disks"`
	CommandBuffer int      `yaml:"command_buffer" mapstructure:"command_buffer"`
	LogLevel      string   `yaml:"log_level"      mapstructure:"log_level"`
	LogFile       string   `yaml:"log_file"       mapstructure:"log_file"`
}

// NewViper returns a viper instance with the agent defaults and environment
// overrides registered.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("title", console.DefaultTitle)
	v.SetDefault("esp_dir", ".")
	v.SetDefault("config_path", bootcfg.DefaultPath)
	v.SetDefault("disks", []string{})
	v.SetDefault("command_buffer", console.DefaultCommandCapacity)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadSettings reads the optional settings file into v and decodes the
// result. An empty file name skips the file.
func LoadSettings(v *viper.Viper, file string) (Settings, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read settings %s: %w", file, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks values that would otherwise fail later in the session.
func (s Settings) Validate() error {
	if s.CommandBuffer <= 0 {
		return fmt.Errorf("command_buffer must be positive, got %d: %w", s.CommandBuffer, ErrInvalidSettings)
	}
	if _, err := zapcore.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w: %w", s.LogLevel, ErrInvalidSettings, err)
	}
	if s.ConfigPath == "" {
		return fmt.Errorf("config_path is empty: %w", ErrInvalidSettings)
	}
	return nil
}
