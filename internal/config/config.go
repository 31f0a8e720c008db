// Package config loads and persists the skills configuration file.
// Configuration is the lowest-priority credential source; secrets
// normally live in the OS keyring and only fall back to this file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// ServiceConfig holds the per-service connection settings.
type ServiceConfig struct {
	// BaseURL is the root URL of the service, e.g.
	// https://company.atlassian.net or https://gerrit.example.com.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Email is the account email, used as the Basic auth username
	// against Atlassian Cloud.
	Email string `mapstructure:"email" yaml:"email"`

	// Username is the account login name for services that do not
	// authenticate by email (Gerrit HTTP credentials).
	Username string `mapstructure:"username" yaml:"username"`

	// Token is the API token or personal access token. Storing it here
	// is supported but discouraged; prefer `skills auth set`.
	Token string `mapstructure:"token" yaml:"token"`
}

// GoogleConfig holds the OAuth application used for Google Workspace.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`

	// Account is the expected Google account email, shown in status
	// output and used to label stored tokens.
	Account string `mapstructure:"account" yaml:"account"`
}

// OutputConfig holds rendering preferences.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Color  string `mapstructure:"color" yaml:"color"`
}

// HTTPConfig holds shared HTTP client settings.
type HTTPConfig struct {
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// Config is the top-level configuration.
type Config struct {
	Services map[string]ServiceConfig `mapstructure:"services" yaml:"services"`
	Google   GoogleConfig             `mapstructure:"google" yaml:"google"`
	Output   OutputConfig             `mapstructure:"output" yaml:"output"`
	HTTP     HTTPConfig               `mapstructure:"http" yaml:"http"`
}

// Service returns the configuration block for the named service, or a
// zero value when the service has no entry.
func (c *Config) Service(name string) ServiceConfig {
	if c == nil || c.Services == nil {
		return ServiceConfig{}
	}
	return c.Services[name]
}

// DefaultPath returns the default configuration file path, honoring
// XDG_CONFIG_HOME (~/.config/skills/config.yaml on Linux).
func DefaultPath() string {
	path, err := xdg.ConfigFile(filepath.Join("skills", "config.yaml"))
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return path
}

func defaultConfig() *Config {
	return &Config{
		Services: map[string]ServiceConfig{},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
		HTTP: HTTPConfig{
			TimeoutSec: 30,
			MaxRetries: 3,
		},
	}
}

// Load reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("output.format", "text")
	v.SetDefault("output.color", "auto")
	v.SetDefault("http.timeout_sec", 30)
	v.SetDefault("http.max_retries", 3)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.HTTP.TimeoutSec <= 0 {
		cfg.HTTP.TimeoutSec = 30
	}
	if cfg.HTTP.MaxRetries < 0 {
		cfg.HTTP.MaxRetries = 3
	}

	return cfg, nil
}

// Save writes the given configuration to a YAML file at path, creating
// parent directories if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("services", cfg.Services)
	v.Set("google", cfg.Google)
	v.Set("output", cfg.Output)
	v.Set("http", cfg.HTTP)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
