package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, "auto", cfg.Output.Color)
	assert.Equal(t, 30, cfg.HTTP.TimeoutSec)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.Empty(t, cfg.Services)
}

func TestLoadParsesServices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
services:
  jira:
    base_url: https://company.atlassian.net
    email: dev@company.com
    token: secret
  gerrit:
    base_url: https://gerrit.company.com
    username: dev
output:
  format: json
http:
  timeout_sec: 10
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	jira := cfg.Service("jira")
	assert.Equal(t, "https://company.atlassian.net", jira.BaseURL)
	assert.Equal(t, "dev@company.com", jira.Email)
	assert.Equal(t, "secret", jira.Token)

	gerrit := cfg.Service("gerrit")
	assert.Equal(t, "dev", gerrit.Username)

	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 10, cfg.HTTP.TimeoutSec)
	// Unset keys keep their defaults.
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.Equal(t, "auto", cfg.Output.Color)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services: [not: a: map"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestServiceMissingEntry(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, ServiceConfig{}, cfg.Service("confluence"))

	var nilCfg *Config
	assert.Equal(t, ServiceConfig{}, nilCfg.Service("jira"))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	cfg := defaultConfig()
	cfg.Services["confluence"] = ServiceConfig{
		BaseURL: "https://wiki.company.com",
		Token:   "pat",
	}
	cfg.Google.Account = "dev@company.com"
	cfg.Output.Format = "json"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://wiki.company.com", loaded.Service("confluence").BaseURL)
	assert.Equal(t, "pat", loaded.Service("confluence").Token)
	assert.Equal(t, "dev@company.com", loaded.Google.Account)
	assert.Equal(t, "json", loaded.Output.Format)
}
