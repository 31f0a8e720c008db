package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/atlassian/confluence"
	"github.com/dverbeek/agent-skills/internal/atlassian/jira"
	"github.com/dverbeek/agent-skills/internal/credential"
	"github.com/dverbeek/agent-skills/internal/executor"
	"github.com/dverbeek/agent-skills/internal/gerrit"
	"github.com/dverbeek/agent-skills/internal/output"
	"github.com/dverbeek/agent-skills/internal/theme"
)

var doctorProbe bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local environment",
	Long: `Checks the config file, keyring, vendor CLIs and per-service
credentials. With --probe each configured service is also contacted
live. The command fails when any check fails; warnings alone do not.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		results := runChecks(cmd.Context(), doctorProbe)
		if err := renderChecksTable(printer, results); err != nil {
			return err
		}

		failed := 0
		for _, r := range results {
			if r.Status == checkFail {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

const (
	checkOK   = "OK"
	checkWarn = "WARN"
	checkFail = "FAIL"
)

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func runChecks(ctx context.Context, probe bool) []checkResult {
	var results []checkResult

	results = append(results, checkConfigFile())
	results = append(results, checkKeyring())
	results = append(results, checkDeploymentCache(ctx))

	for _, binary := range []string{"gh", "glab", "ssh"} {
		results = append(results, checkBinary(binary))
	}

	for _, service := range authServices {
		results = append(results, checkService(service))
	}

	if probe {
		results = append(results, probeChecks(ctx)...)
	}
	return results
}

func checkConfigFile() checkResult {
	if _, err := os.Stat(cfgPath); err != nil {
		return checkResult{"config file", checkWarn, fmt.Sprintf("%s not found; defaults in effect", cfgPath)}
	}
	return checkResult{"config file", checkOK, cfgPath}
}

func checkKeyring() checkResult {
	keys, err := credential.Keys()
	if err != nil {
		return checkResult{"keyring", checkWarn, fmt.Sprintf("unavailable (%v); environment and config still work", err)}
	}
	return checkResult{"keyring", checkOK, fmt.Sprintf("%d credential(s) stored", len(keys))}
}

func checkDeploymentCache(ctx context.Context) checkResult {
	st, closeStore := openDeploymentStore()
	defer closeStore()
	if st == nil {
		return checkResult{"deployment cache", checkWarn, "unavailable; deployments are re-detected each run"}
	}

	infos, err := st.List(ctx)
	if err != nil {
		return checkResult{"deployment cache", checkWarn, err.Error()}
	}
	return checkResult{"deployment cache", checkOK, fmt.Sprintf("%d cached deployment(s)", len(infos))}
}

func checkBinary(binary string) checkResult {
	name := binary + " binary"
	if path := executor.Which(binary); path != "" {
		return checkResult{name, checkOK, path}
	}
	err := &executor.NotFoundError{Binary: binary}
	return checkResult{name, checkWarn, err.Error()}
}

func checkService(service string) checkResult {
	creds, err := credential.Resolve(service, cfg)
	if err != nil {
		if service == "google" && cfg.Google.ClientID != "" {
			return checkResult{service, checkOK, "OAuth client configured"}
		}
		return checkResult{service, checkWarn, "not configured"}
	}

	switch {
	case creds.Token == "":
		return checkResult{service, checkWarn, "base URL set but no token"}
	case creds.BaseURL == "" && service != "google":
		return checkResult{service, checkWarn, "token set but no base URL"}
	default:
		return checkResult{service, checkOK, "token via " + creds.Source}
	}
}

// probeChecks contacts each configured service. Only services that
// resolve credentials are probed; the rest already carry a warning.
func probeChecks(ctx context.Context) []checkResult {
	var results []checkResult

	for _, service := range []string{"jira", "confluence"} {
		if _, err := credential.Resolve(service, cfg); err != nil {
			continue
		}
		results = append(results, probeAtlassianCheck(ctx, service))
	}

	if creds, err := credential.Resolve("gerrit", cfg); err == nil && creds.BaseURL != "" {
		name := "gerrit probe"
		client := gerrit.NewClient(creds.BaseURL, creds.Username, creds.Token, gerrit.Options{})
		if _, err := client.Query(ctx, "status:open", 1); err != nil {
			results = append(results, checkResult{name, checkFail, err.Error()})
		} else {
			results = append(results, checkResult{name, checkOK, creds.BaseURL})
		}
	}

	if tokens, err := googleTokens(); err == nil {
		name := "google probe"
		if _, err := tokens.Token(ctx); err != nil {
			results = append(results, checkResult{name, checkFail, err.Error()})
		} else {
			results = append(results, checkResult{name, checkOK, "access token valid"})
		}
	}

	return results
}

func probeAtlassianCheck(ctx context.Context, service string) checkResult {
	name := service + " probe"
	client, info, err := atlassianClient(ctx, service)
	if err != nil {
		return checkResult{name, checkFail, err.Error()}
	}

	switch service {
	case "jira":
		_, err = jira.NewService(client, info).Myself(ctx)
	case "confluence":
		_, err = confluence.NewService(client, info).Spaces(ctx, 1, 0)
	}
	if err != nil {
		return checkResult{name, checkFail, err.Error()}
	}

	detail := string(info.Deployment)
	if info.Version != "" {
		detail += " v" + info.Version
	}
	return checkResult{name, checkOK, detail}
}

func renderChecksTable(p *output.Printer, results []checkResult) error {
	if p.IsJSON() {
		return p.JSON(results)
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Name, styledCheckStatus(r.Status), r.Detail})
	}
	p.Table([]string{"CHECK", "STATUS", "DETAIL"}, rows)
	return nil
}

func styledCheckStatus(status string) string {
	switch status {
	case checkOK:
		return theme.OKStyle.Render(status)
	case checkFail:
		return theme.FailStyle.Render(status)
	default:
		return theme.WarnStyle.Render(status)
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorProbe, "probe", false, "also contact each configured service")
}
