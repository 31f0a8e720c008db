package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/atlassian"
	"github.com/dverbeek/agent-skills/internal/atlassian/confluence"
	"github.com/dverbeek/agent-skills/internal/atlassian/jira"
	"github.com/dverbeek/agent-skills/internal/config"
	"github.com/dverbeek/agent-skills/internal/credential"
	"github.com/dverbeek/agent-skills/internal/gerrit"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure a service interactively",
	Long: `Walks through configuring one service: connection details are asked
interactively, the connection is checked live, tokens go to the system
keyring and the rest to the config file.

GitHub and GitLab need no setup here; authenticate their own CLIs with
gh auth login and glab auth login.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSetup(cmd.Context())
	},
}

func runSetup(ctx context.Context) error {
	var service string
	selectForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Service").
				Description("Which service do you want to configure?").
				Options(
					huh.NewOption("Jira - issue tracking", "jira"),
					huh.NewOption("Confluence - wiki pages", "confluence"),
					huh.NewOption("Gerrit - code review", "gerrit"),
					huh.NewOption("Google Workspace - Drive, Docs, Sheets, Calendar, Gmail", "google"),
				).
				Value(&service),
		),
	)
	if err := selectForm.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			printer.Line("Setup canceled.")
			return nil
		}
		return err
	}

	switch service {
	case "jira", "confluence":
		return setupAtlassian(ctx, service)
	case "gerrit":
		return setupGerrit(ctx)
	case "google":
		return setupGoogle()
	default:
		return fmt.Errorf("unknown service %q", service)
	}
}

func setupAtlassian(ctx context.Context, service string) error {
	svc := cfg.Service(service)
	baseURL := svc.BaseURL
	email := svc.Email
	var token string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Description("Site root, e.g. https://company.atlassian.net or https://"+service+".example.com").
				Placeholder("https://company.atlassian.net").
				Value(&baseURL).
				Validate(validateSetupURL),
			huh.NewInput().
				Title("Email").
				Description("Account email; required for Atlassian Cloud, leave empty for Server with a PAT").
				Placeholder("you@company.com").
				Value(&email),
			huh.NewInput().
				Title("API token").
				Description("Cloud API token or Server personal access token").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(validateSetupRequired("Token")),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			printer.Line("Setup canceled.")
			return nil
		}
		return err
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	email = strings.TrimSpace(email)

	printer.Line("Checking the connection to %s...", baseURL)
	if err := probeAtlassian(ctx, service, baseURL, email, token); err != nil {
		ok, cerr := confirmSaveAnyway(err)
		if cerr != nil {
			return cerr
		}
		if !ok {
			printer.Line("Nothing saved.")
			return nil
		}
	} else {
		printer.Line("Connection OK.")
	}

	return saveServiceSetup(service, config.ServiceConfig{BaseURL: baseURL, Email: email}, token)
}

// probeAtlassian runs deployment detection and one authenticated read
// against the entered credentials.
func probeAtlassian(ctx context.Context, service, baseURL, email, token string) error {
	creds := credential.Credentials{BaseURL: baseURL, Email: email, Token: token}
	opts := httpOptions()

	st, closeStore := openDeploymentStore()
	defer closeStore()

	detector := atlassian.NewDetector(detectorStore(st), opts)
	info, err := detector.Detect(ctx, service, baseURL, probeAuth(creds))
	if err != nil {
		return err
	}

	auth, err := serviceAuth(service, info, creds)
	if err != nil {
		return err
	}
	client := atlassian.NewClient(baseURL, auth, opts)

	switch service {
	case "jira":
		_, err = jira.NewService(client, info).Myself(ctx)
	case "confluence":
		_, err = confluence.NewService(client, info).Spaces(ctx, 1, 0)
	}
	return err
}

func setupGerrit(ctx context.Context) error {
	svc := cfg.Service("gerrit")
	baseURL := svc.BaseURL
	username := svc.Username
	var password string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Description("Gerrit web root, e.g. https://gerrit.example.com").
				Placeholder("https://gerrit.example.com").
				Value(&baseURL).
				Validate(validateSetupURL),
			huh.NewInput().
				Title("Username").
				Description("Gerrit account username").
				Value(&username).
				Validate(validateSetupRequired("Username")),
			huh.NewInput().
				Title("HTTP password").
				Description("Generated under Settings > HTTP Credentials").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(validateSetupRequired("HTTP password")),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			printer.Line("Setup canceled.")
			return nil
		}
		return err
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	username = strings.TrimSpace(username)

	printer.Line("Checking the connection to %s...", baseURL)
	client := gerrit.NewClient(baseURL, username, password, gerrit.Options{})
	if _, err := client.Query(ctx, "owner:self", 1); err != nil {
		ok, cerr := confirmSaveAnyway(err)
		if cerr != nil {
			return cerr
		}
		if !ok {
			printer.Line("Nothing saved.")
			return nil
		}
	} else {
		printer.Line("Connection OK.")
	}

	return saveServiceSetup("gerrit", config.ServiceConfig{BaseURL: baseURL, Username: username}, password)
}

func setupGoogle() error {
	clientID := cfg.Google.ClientID
	clientSecret := cfg.Google.ClientSecret
	account := cfg.Google.Account

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("OAuth client ID").
				Description("Desktop-app OAuth client from the Google Cloud console").
				Value(&clientID).
				Validate(validateSetupRequired("Client ID")),
			huh.NewInput().
				Title("OAuth client secret").
				EchoMode(huh.EchoModePassword).
				Value(&clientSecret).
				Validate(validateSetupRequired("Client secret")),
			huh.NewInput().
				Title("Account email").
				Description("Optional; also the Gmail IMAP login").
				Placeholder("you@gmail.com").
				Value(&account),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			printer.Line("Setup canceled.")
			return nil
		}
		return err
	}

	cfg.Google.ClientID = strings.TrimSpace(clientID)
	cfg.Google.ClientSecret = strings.TrimSpace(clientSecret)
	cfg.Google.Account = strings.TrimSpace(account)

	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}
	printer.Line("Saved Google OAuth client to %s", cfgPath)
	printer.Hint("run `skills google auth login` to authorize")
	return nil
}

// saveServiceSetup persists the non-secret fields to the config file
// and the token to the keyring. When no keyring backend is available
// the token falls back to the config file.
func saveServiceSetup(service string, svcCfg config.ServiceConfig, token string) error {
	if err := credential.Set(credential.Key(service, credential.FieldToken), token); err != nil {
		printer.Line("Keyring unavailable (%v); storing the token in the config file instead.", err)
		svcCfg.Token = token
	}

	if cfg.Services == nil {
		cfg.Services = map[string]config.ServiceConfig{}
	}
	cfg.Services[service] = svcCfg

	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}
	printer.Line("Saved %s configuration to %s", service, cfgPath)
	return nil
}

func confirmSaveAnyway(probeErr error) (bool, error) {
	printer.Line("Connection check failed: %v", probeErr)

	var save bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save anyway?").
				Description("The credentials could not be verified from here").
				Affirmative("Yes").
				Negative("No").
				Value(&save),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return save, nil
}

func validateSetupRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateSetupURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
