package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ---------------------------------------------------------------------------
// Environment variable constants
// ---------------------------------------------------------------------------

const (
	EnvPrefix = "ARROW"
	EnvConfig = "ARROW_CONFIG" // path to a custom config file
	EnvAPIKey = "ARROW_API_KEY"

	// EnvOpenAIKey is read as a fallback credential source.
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// DefaultModels lists the model ids accepted by the model switcher unless
// the config overrides it.
var DefaultModels = []string{
	"gpt-4",
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-3.5-turbo",
}

// Config holds all configuration for arrow.
type Config struct {
	// --- Completion backend ---
	APIKey  string        `mapstructure:"api_key" json:"api_key,omitempty"`
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Model   string        `mapstructure:"model" json:"model"`
	Models  []string      `mapstructure:"models" json:"models,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`

	// --- Logging ---
	LogLevel  string `mapstructure:"log_level" json:"log_level,omitempty"`
	LogFile   string `mapstructure:"log_file" json:"log_file,omitempty"`
	LogFormat string `mapstructure:"log_format" json:"log_format,omitempty"` // "text" | "json"

	// --- Panel bridge server ---
	Server ServerConfig `mapstructure:"server" json:"server,omitempty"`

	// --- TUI ---
	Theme string `mapstructure:"theme" json:"theme,omitempty"`

	// File the config was read from, empty when only defaults/env applied.
	configFile string `json:"-"`
}

// ServerConfig defines the HTTP bridge settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" json:"port,omitempty"`
	Hostname string `mapstructure:"hostname" json:"hostname,omitempty"`
}

// Addr returns host:port for the bridge listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "https://api.openai.com/v1")
	v.SetDefault("model", "gpt-4")
	v.SetDefault("models", DefaultModels)
	v.SetDefault("timeout", "60s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_format", "text")
	v.SetDefault("server.port", 4097)
	v.SetDefault("server.hostname", "localhost")
	v.SetDefault("theme", "catppuccin-mocha")
}

// Load reads configuration. When path is empty the ARROW_CONFIG variable is
// consulted, then arrow.yaml is searched in ~/.config/arrow, the working
// directory, and ./.arrow. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if dir := GetConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		v.AddConfigPath(".arrow")
		v.SetConfigName("arrow")
		v.SetConfigType("yaml")
	}

	// Environment variables: ARROW_MODEL, ARROW_SERVER_PORT, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", EnvAPIKey, EnvOpenAIKey)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.configFile = v.ConfigFileUsed()

	return &cfg, nil
}

// ConfigFile returns the file the config was loaded from, if any.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// GetConfigDir returns the arrow config directory.
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "arrow")
}

// SaveConfig writes the config to a JSON file readable only by the owner,
// since it may carry the API key.
func (c *Config) SaveConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Redacted returns a copy with the API key masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	out.Models = append([]string(nil), c.Models...)
	out.APIKey = MaskKey(c.APIKey)
	return out
}

// MaskKey keeps the first and last four characters of key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// String returns the redacted config as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
