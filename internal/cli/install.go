package cli

import (
	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/registry"
)

var (
	installAgent string
	installForce bool

	uninstallAgent string
)

var installCmd = &cobra.Command{
	Use:   "install [NAME...]",
	Short: "Install skill documents for a coding agent",
	Long: `Copies the named skills, or all of them, into the agent's skills
directory (~/.claude/skills or ~/.cursor/skills-cursor). Agents pick
up the SKILL.md documents from there.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := registry.ParseAgent(installAgent)
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			skills, err := registry.Discover(registry.Embedded())
			if err != nil {
				return err
			}
			for _, s := range skills {
				names = append(names, s.Name)
			}
		}

		for _, name := range names {
			dir, err := registry.Install(registry.Embedded(), agent, name, installForce)
			if err != nil {
				return err
			}
			printer.Line("Installed %s -> %s", name, dir)
		}
		printer.Line("%d skill(s) installed for %s.", len(names), agent)
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall NAME...",
	Short: "Remove installed skill documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := registry.ParseAgent(uninstallAgent)
		if err != nil {
			return err
		}

		for _, name := range args {
			if err := registry.Uninstall(agent, name); err != nil {
				return err
			}
			printer.Line("Removed %s.", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)

	installCmd.Flags().StringVar(&installAgent, "agent", "claude", "target agent (claude or cursor)")
	installCmd.Flags().BoolVar(&installForce, "force", false, "overwrite existing installations")

	uninstallCmd.Flags().StringVar(&uninstallAgent, "agent", "claude", "target agent (claude or cursor)")
}
