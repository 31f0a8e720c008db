// Package cli wires the skills command tree. Each leaf command parses
// flags, resolves credentials for its service, performs one or a few
// API calls, and renders the result through the output package.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/config"
	"github.com/dverbeek/agent-skills/internal/logger"
	"github.com/dverbeek/agent-skills/internal/output"
)

var (
	cfgPath    string
	outputName string
	debug      bool

	// Populated by the root PersistentPreRunE for every command.
	cfg     *config.Config
	printer *output.Printer
)

var rootCmd = &cobra.Command{
	Use:   "skills",
	Short: "CLI skills for driving SaaS tools from coding agents",
	Long: `skills gives coding agents a uniform command surface over Jira,
Confluence, GitHub, GitLab, Gerrit and Google Workspace. Credentials
resolve from the OS keyring, environment variables, and the config
file, in that order; Atlassian deployments (Cloud vs Server/DC) are
detected and cached automatically.

Run "skills setup" once per service, then see the per-service help:

  skills jira --help
  skills confluence --help
  skills github --help`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.Initialize(debug)

		if cfgPath == "" {
			cfgPath = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		name := outputName
		if !cmd.Flags().Changed("output") && cfg.Output.Format != "" {
			name = cfg.Output.Format
		}
		format, err := output.ParseFormat(name)
		if err != nil {
			return err
		}

		switch cfg.Output.Color {
		case "never":
			lipgloss.SetColorProfile(termenv.Ascii)
		case "always":
			lipgloss.SetColorProfile(termenv.ANSI256)
		}

		printer = output.NewPrinter(cmd.OutOrStdout(), format)
		return nil
	},
}

// Execute runs the root command until completion or interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Sync()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to the config file (default ~/.config/skills/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputName, "output", "o", "text",
		"output format: text or json")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug logging")
}
