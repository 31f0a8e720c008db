package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dverbeek/agent-skills/internal/atlassian"
	"github.com/dverbeek/agent-skills/internal/atlassian/confluence"
	"github.com/dverbeek/agent-skills/internal/atlassian/jira"
	"github.com/dverbeek/agent-skills/internal/credential"
	"github.com/dverbeek/agent-skills/internal/gerrit"
	"github.com/dverbeek/agent-skills/internal/google"
	"github.com/dverbeek/agent-skills/internal/logger"
	"github.com/dverbeek/agent-skills/internal/store"
)

func httpOptions() atlassian.Options {
	return atlassian.Options{
		Timeout:    time.Duration(cfg.HTTP.TimeoutSec) * time.Second,
		MaxRetries: cfg.HTTP.MaxRetries,
	}
}

// openDeploymentStore opens the persistent deployment cache. A store
// that cannot be opened only costs a re-probe, so failures degrade to
// a nil store instead of failing the command.
func openDeploymentStore() (*store.SQLiteStore, func()) {
	st, err := store.NewSQLiteStore(store.DefaultPath())
	if err != nil {
		logger.Debugw("deployment cache unavailable", "error", err)
		return nil, func() {}
	}
	return st, func() {
		if err := st.Close(); err != nil {
			logger.Debugw("closing deployment cache", "error", err)
		}
	}
}

// detectorStore adapts the concrete store for the detector. A failed
// open must become a nil interface, not a typed nil pointer.
func detectorStore(st *store.SQLiteStore) atlassian.Store {
	if st == nil {
		return nil
	}
	return st
}

// probeAuth picks the authenticator used when deployment detection
// needs credentials: Basic when an email is configured, Bearer
// otherwise.
func probeAuth(creds credential.Credentials) atlassian.Authenticator {
	if creds.Token == "" {
		return nil
	}
	if creds.Email != "" {
		return atlassian.BasicAuth{Username: creds.Email, Password: creds.Token}
	}
	return atlassian.BearerAuth{Token: creds.Token}
}

// serviceAuth picks the request authenticator for a detected
// deployment. Cloud without an email would silently fall back to
// Bearer and fail with 401s, so reject it with guidance instead.
func serviceAuth(product string, info atlassian.Info, creds credential.Credentials) (atlassian.Authenticator, error) {
	if info.IsCloud() && creds.Token != "" && creds.Email == "" {
		return nil, fmt.Errorf(
			"%s: Atlassian Cloud requires an email alongside the API token; run `skills setup` or set SKILLS_%s_EMAIL",
			product, envSuffix(product),
		)
	}
	return atlassian.AuthFor(info.Deployment, creds.Email, creds.Token), nil
}

// atlassianClient resolves credentials for an Atlassian product,
// detects its deployment, and returns an authenticated client.
func atlassianClient(ctx context.Context, product string) (*atlassian.Client, atlassian.Info, error) {
	creds, err := credential.Resolve(product, cfg)
	if err != nil {
		return nil, atlassian.Info{}, err
	}
	if creds.BaseURL == "" {
		return nil, atlassian.Info{}, fmt.Errorf(
			"%s: no base URL configured; run `skills setup` or set SKILLS_%s_BASE_URL",
			product, envSuffix(product),
		)
	}

	opts := httpOptions()

	st, closeStore := openDeploymentStore()
	defer closeStore()

	detector := atlassian.NewDetector(detectorStore(st), opts)
	info, err := detector.Detect(ctx, product, creds.BaseURL, probeAuth(creds))
	if err != nil {
		return nil, atlassian.Info{}, err
	}

	auth, err := serviceAuth(product, info, creds)
	if err != nil {
		return nil, atlassian.Info{}, err
	}
	return atlassian.NewClient(creds.BaseURL, auth, opts), info, nil
}

func envSuffix(product string) string {
	switch product {
	case "jira":
		return "JIRA"
	case "confluence":
		return "CONFLUENCE"
	case "gerrit":
		return "GERRIT"
	default:
		return "SERVICE"
	}
}

func jiraService(ctx context.Context) (*jira.Service, error) {
	client, info, err := atlassianClient(ctx, "jira")
	if err != nil {
		return nil, err
	}
	return jira.NewService(client, info), nil
}

func confluenceService(ctx context.Context) (*confluence.Service, error) {
	client, info, err := atlassianClient(ctx, "confluence")
	if err != nil {
		return nil, err
	}
	return confluence.NewService(client, info), nil
}

// gerritClient builds a Gerrit REST client. Queries work anonymously
// against public servers, so missing credentials are not an error
// here; writes fail server-side with 401.
func gerritClient() (*gerrit.Client, error) {
	creds, err := credential.Resolve("gerrit", cfg)
	if err != nil {
		return nil, err
	}
	if creds.BaseURL == "" {
		return nil, fmt.Errorf("gerrit: no base URL configured; run `skills setup` or set SKILLS_GERRIT_BASE_URL")
	}

	opts := gerrit.Options{
		Timeout:    time.Duration(cfg.HTTP.TimeoutSec) * time.Second,
		MaxRetries: cfg.HTTP.MaxRetries,
	}
	return gerrit.NewClient(creds.BaseURL, creds.Username, creds.Token, opts), nil
}

func googleTokens() (*google.TokenManager, error) {
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return nil, fmt.Errorf("google: client_id and client_secret are not configured; run `skills setup`")
	}
	return google.NewTokenManager(cfg.Google.ClientID, cfg.Google.ClientSecret, google.KeyringStore{}), nil
}

func googleClient() (*google.Client, error) {
	tokens, err := googleTokens()
	if err != nil {
		return nil, err
	}
	opts := google.Options{
		Timeout:    time.Duration(cfg.HTTP.TimeoutSec) * time.Second,
		MaxRetries: cfg.HTTP.MaxRetries,
	}
	return google.NewClient(tokens, opts), nil
}

// gmailClient builds the IMAP-backed Gmail reader. The username is the
// account email; the password is an app password stored like any other
// service token.
func gmailClient() (*google.Gmail, error) {
	creds, err := credential.Resolve("google", cfg)
	if err != nil {
		return nil, err
	}

	username := creds.Email
	if username == "" {
		username = cfg.Google.Account
	}
	if username == "" || creds.Token == "" {
		return nil, fmt.Errorf(
			"gmail: needs the account email and an app password; run `skills auth set google email` and `skills auth set google token`",
		)
	}
	return google.NewGmail(username, creds.Token), nil
}
