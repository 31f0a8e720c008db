package cli

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dverbeek/agent-skills/internal/credential"
	"github.com/dverbeek/agent-skills/internal/output"
)

// authServices are the services whose credentials live in the keyring.
// GitHub and GitLab authenticate through their own CLIs.
var authServices = []string{"jira", "confluence", "gerrit", "google"}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored service credentials",
	Long: `Stores per-service credentials in the system keyring. Stored values
take priority over environment variables and the config file.

Fields: ` + strings.Join(credential.Fields, ", "),
}

var authSetCmd = &cobra.Command{
	Use:   "set SERVICE FIELD [VALUE]",
	Short: "Store a credential in the keyring",
	Long: `Stores one credential field, e.g.

  skills auth set jira token

Without VALUE the value is read from the terminal with echo disabled,
which keeps secrets out of the shell history.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, field := args[0], args[1]
		if err := validateAuthService(service); err != nil {
			return err
		}
		if !slices.Contains(credential.Fields, field) {
			return fmt.Errorf("unknown field %q (expected one of %s)", field, strings.Join(credential.Fields, ", "))
		}

		var value string
		if len(args) == 3 {
			value = args[2]
		} else {
			v, err := readSecret(cmd, fmt.Sprintf("%s %s", service, field))
			if err != nil {
				return err
			}
			value = v
		}
		if value == "" {
			return fmt.Errorf("empty value; nothing stored")
		}

		if err := credential.Set(credential.Key(service, field), value); err != nil {
			return err
		}
		printer.Line("Stored %s %s in the keyring.", service, field)
		return nil
	},
}

var authGetCmd = &cobra.Command{
	Use:   "get SERVICE FIELD",
	Short: "Print a stored credential",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, field := args[0], args[1]
		if err := validateAuthService(service); err != nil {
			return err
		}

		value, err := credential.Get(credential.Key(service, field))
		if err != nil {
			return fmt.Errorf("no %s %s stored in the keyring", service, field)
		}
		printer.Line("%s", value)
		return nil
	},
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove SERVICE FIELD",
	Short: "Delete a stored credential",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, field := args[0], args[1]
		if err := validateAuthService(service); err != nil {
			return err
		}

		if err := credential.Delete(credential.Key(service, field)); err != nil {
			return fmt.Errorf("no %s %s stored in the keyring", service, field)
		}
		printer.Line("Removed %s %s from the keyring.", service, field)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show resolved credentials per service",
	Long: `Shows, for each service, where the token came from (keyring,
environment, or config file) and which base URL is in effect. Token
values are never printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return renderAuthStatus(printer)
	},
}

// validateAuthService rejects services whose credentials this command
// does not own.
func validateAuthService(service string) error {
	switch service {
	case "github":
		return fmt.Errorf("github credentials are managed by the gh CLI; run `gh auth login`")
	case "gitlab":
		return fmt.Errorf("gitlab credentials are managed by the glab CLI; run `glab auth login`")
	}
	if !slices.Contains(authServices, service) {
		return fmt.Errorf("unknown service %q (expected one of %s)", service, strings.Join(authServices, ", "))
	}
	return nil
}

// readSecret prompts for a value without echoing it. When stdin is not
// a terminal the value is read as a single line, so piping works.
func readSecret(cmd *cobra.Command, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Enter %s: ", label)
		value, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return strings.TrimSpace(string(value)), nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

type authStatusRow struct {
	Service string `json:"service"`
	Token   string `json:"token"`
	Source  string `json:"source,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

func authStatusRows() []authStatusRow {
	rows := make([]authStatusRow, 0, len(authServices))
	for _, service := range authServices {
		row := authStatusRow{Service: service, Token: "not configured"}

		creds, err := credential.Resolve(service, cfg)
		if err == nil {
			if creds.Token != "" {
				row.Token = "configured"
				row.Source = creds.Source
			}
			row.BaseURL = creds.BaseURL
		}
		rows = append(rows, row)
	}
	return rows
}

func renderAuthStatus(p *output.Printer) error {
	rows := authStatusRows()
	if p.IsJSON() {
		return p.JSON(rows)
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		source := row.Source
		if source == "" {
			source = "-"
		}
		baseURL := row.BaseURL
		if baseURL == "" {
			baseURL = "-"
		}
		table = append(table, []string{row.Service, row.Token, source, baseURL})
	}
	p.Table([]string{"SERVICE", "TOKEN", "SOURCE", "BASE URL"}, table)
	p.Hint("github and gitlab authenticate through gh and glab")
	return nil
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authGetCmd)
	authCmd.AddCommand(authRemoveCmd)
	authCmd.AddCommand(authStatusCmd)
}
