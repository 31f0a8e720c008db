package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbeek/agent-skills/internal/config"
)

func withRing(t *testing.T, items ...keyring.Item) {
	t.Helper()
	orig := openRing
	openRing = func() (keyring.Keyring, error) {
		return keyring.NewArrayKeyring(items), nil
	}
	t.Cleanup(func() { openRing = orig })
}

func withBrokenRing(t *testing.T) {
	t.Helper()
	orig := openRing
	openRing = func() (keyring.Keyring, error) {
		return nil, errors.New("no keyring backend")
	}
	t.Cleanup(func() { openRing = orig })
}

func clearEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		t.Setenv(name, "")
	}
}

func TestResolvePriority(t *testing.T) {
	withRing(t, keyring.Item{Key: "jira-token", Data: []byte("ring-token")})
	t.Setenv("SKILLS_JIRA_TOKEN", "env-token")
	t.Setenv("SKILLS_JIRA_BASE_URL", "https://jira.company.com/")
	clearEnv(t, "ATLASSIAN_BASE_URL", "ATLASSIAN_EMAIL", "ATLASSIAN_API_TOKEN")

	cfg := &config.Config{Services: map[string]config.ServiceConfig{
		"jira": {Email: "dev@company.com", Token: "config-token"},
	}}

	creds, err := Resolve("jira", cfg)
	require.NoError(t, err)

	assert.Equal(t, "ring-token", creds.Token)
	assert.Equal(t, SourceKeyring, creds.Source)
	// Fields merge independently across tiers.
	assert.Equal(t, "https://jira.company.com", creds.BaseURL)
	assert.Equal(t, "dev@company.com", creds.Email)
}

func TestResolveEnvBeatsConfig(t *testing.T) {
	withRing(t)
	t.Setenv("SKILLS_GERRIT_TOKEN", "env-token")
	t.Setenv("SKILLS_GERRIT_USERNAME", "env-user")

	cfg := &config.Config{Services: map[string]config.ServiceConfig{
		"gerrit": {BaseURL: "https://gerrit.company.com", Username: "config-user", Token: "config-token"},
	}}

	creds, err := Resolve("gerrit", cfg)
	require.NoError(t, err)

	assert.Equal(t, "env-token", creds.Token)
	assert.Equal(t, SourceEnv, creds.Source)
	assert.Equal(t, "env-user", creds.Username)
	assert.Equal(t, "https://gerrit.company.com", creds.BaseURL)
}

func TestResolveAtlassianFallbackEnv(t *testing.T) {
	withRing(t)
	clearEnv(t,
		"SKILLS_JIRA_BASE_URL", "SKILLS_JIRA_EMAIL", "SKILLS_JIRA_TOKEN",
		"SKILLS_CONFLUENCE_BASE_URL", "SKILLS_CONFLUENCE_EMAIL", "SKILLS_CONFLUENCE_TOKEN",
		"SKILLS_GERRIT_BASE_URL", "SKILLS_GERRIT_TOKEN",
	)
	t.Setenv("ATLASSIAN_BASE_URL", "https://company.atlassian.net")
	t.Setenv("ATLASSIAN_EMAIL", "dev@company.com")
	t.Setenv("ATLASSIAN_API_TOKEN", "shared-token")

	for _, service := range []string{"jira", "confluence"} {
		creds, err := Resolve(service, &config.Config{})
		require.NoError(t, err, service)
		assert.Equal(t, "https://company.atlassian.net", creds.BaseURL, service)
		assert.Equal(t, "dev@company.com", creds.Email, service)
		assert.Equal(t, "shared-token", creds.Token, service)
		assert.Equal(t, SourceEnv, creds.Source, service)
	}

	// Gerrit does not inherit the Atlassian variables.
	_, err := Resolve("gerrit", &config.Config{})
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestResolveEmptyEnvIsUnset(t *testing.T) {
	withRing(t)
	t.Setenv("SKILLS_JIRA_TOKEN", "")
	clearEnv(t, "ATLASSIAN_BASE_URL", "ATLASSIAN_EMAIL", "ATLASSIAN_API_TOKEN")

	cfg := &config.Config{Services: map[string]config.ServiceConfig{
		"jira": {BaseURL: "https://jira.company.com", Token: "config-token"},
	}}

	creds, err := Resolve("jira", cfg)
	require.NoError(t, err)
	assert.Equal(t, "config-token", creds.Token)
	assert.Equal(t, SourceConfig, creds.Source)
}

func TestResolveNothingConfigured(t *testing.T) {
	withRing(t)
	clearEnv(t,
		"SKILLS_JIRA_BASE_URL", "SKILLS_JIRA_EMAIL", "SKILLS_JIRA_TOKEN",
		"ATLASSIAN_BASE_URL", "ATLASSIAN_EMAIL", "ATLASSIAN_API_TOKEN",
	)

	_, err := Resolve("jira", &config.Config{})
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Contains(t, err.Error(), "jira")
}

func TestResolveBrokenKeyringFallsThrough(t *testing.T) {
	withBrokenRing(t)
	t.Setenv("SKILLS_CONFLUENCE_BASE_URL", "https://wiki.company.com")
	t.Setenv("SKILLS_CONFLUENCE_TOKEN", "env-token")

	creds, err := Resolve("confluence", &config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "env-token", creds.Token)
	assert.Equal(t, SourceEnv, creds.Source)
}

func TestKeyNames(t *testing.T) {
	assert.Equal(t, "jira-token", Key("jira", FieldToken))
	assert.Equal(t, "gerrit-base-url", Key("gerrit", FieldBaseURL))
	assert.Equal(t, "SKILLS_JIRA_BASE_URL", envName("jira", FieldBaseURL))
	assert.Equal(t, "SKILLS_GOOGLE_TOKEN", envName("google", FieldToken))
}
