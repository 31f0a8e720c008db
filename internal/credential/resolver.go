package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"

	"github.com/dverbeek/agent-skills/internal/config"
)

// ErrNoCredentials is returned when no tier supplies a token or a base
// URL for the requested service.
var ErrNoCredentials = errors.New("no credentials configured; run `skills setup` or `skills auth set`")

// Tier names reported in Credentials.Source and `auth status`.
const (
	SourceKeyring = "keyring"
	SourceEnv     = "env"
	SourceConfig  = "config"
)

// Field names; they double as keyring key suffixes.
const (
	FieldBaseURL  = "base-url"
	FieldEmail    = "email"
	FieldUsername = "username"
	FieldToken    = "token"
)

// Fields lists all resolvable credential fields.
var Fields = []string{FieldBaseURL, FieldEmail, FieldUsername, FieldToken}

// Credentials holds the resolved connection settings for one service.
type Credentials struct {
	BaseURL  string
	Email    string
	Username string
	Token    string

	// Source names the tier that supplied the token.
	Source string
}

// Key returns the keyring key for a service field, e.g. "jira-token".
func Key(service, field string) string {
	return service + "-" + field
}

func envName(service, field string) string {
	field = strings.ReplaceAll(field, "-", "_")
	return "SKILLS_" + strings.ToUpper(service) + "_" + strings.ToUpper(field)
}

// Atlassian-wide variables apply to both jira and confluence so a
// single Cloud site needs configuring only once.
var atlassianEnv = map[string]string{
	FieldBaseURL: "ATLASSIAN_BASE_URL",
	FieldEmail:   "ATLASSIAN_EMAIL",
	FieldToken:   "ATLASSIAN_API_TOKEN",
}

func fallbackEnvName(service, field string) string {
	if service != "jira" && service != "confluence" {
		return ""
	}
	return atlassianEnv[field]
}

// Resolve merges the keyring, environment, and config file for the
// named service, in that priority order. Each field falls through the
// tiers independently, so a keyring token combines with a base URL
// from the environment or the config file. A keyring that cannot be
// opened is treated as empty rather than failing the resolve.
func Resolve(service string, cfg *config.Config) (Credentials, error) {
	var ring keyring.Keyring
	if r, err := openRing(); err == nil {
		ring = r
	}

	svc := cfg.Service(service)
	fromConfig := map[string]string{
		FieldBaseURL:  svc.BaseURL,
		FieldEmail:    svc.Email,
		FieldUsername: svc.Username,
		FieldToken:    svc.Token,
	}

	var creds Credentials
	for _, field := range Fields {
		value, source := lookup(ring, service, field, fromConfig[field])
		switch field {
		case FieldBaseURL:
			creds.BaseURL = strings.TrimRight(value, "/")
		case FieldEmail:
			creds.Email = value
		case FieldUsername:
			creds.Username = value
		case FieldToken:
			creds.Token = value
			creds.Source = source
		}
	}

	if creds.Token == "" && creds.BaseURL == "" {
		return Credentials{}, fmt.Errorf("%s: %w", service, ErrNoCredentials)
	}

	return creds, nil
}

// lookup resolves one field through the tiers. Empty values count as
// unset at every tier.
func lookup(ring keyring.Keyring, service, field, configValue string) (value, source string) {
	if ring != nil {
		if item, err := ring.Get(Key(service, field)); err == nil && len(item.Data) > 0 {
			return string(item.Data), SourceKeyring
		}
	}

	if v := os.Getenv(envName(service, field)); v != "" {
		return v, SourceEnv
	}
	if name := fallbackEnvName(service, field); name != "" {
		if v := os.Getenv(name); v != "" {
			return v, SourceEnv
		}
	}

	if configValue != "" {
		return configValue, SourceConfig
	}

	return "", ""
}
