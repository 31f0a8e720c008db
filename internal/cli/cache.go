package cli

import (
	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the deployment detection cache",
	Long: `Deployment detection (Cloud vs Server) is cached per base URL so
most commands skip the probe. These commands inspect and reset that
cache; entries also expire on their own after a day.`,
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List cached deployments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := store.NewSQLiteStore(store.DefaultPath())
		if err != nil {
			return err
		}
		defer st.Close()

		infos, err := st.List(cmd.Context())
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(infos)
		}
		if len(infos) == 0 {
			printer.Line("Cache is empty.")
			return nil
		}

		rows := make([][]string, 0, len(infos))
		for _, info := range infos {
			rows = append(rows, []string{
				info.BaseURL,
				info.Product,
				string(info.Deployment),
				info.Version,
				info.DetectedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		printer.Table([]string{"BASE URL", "PRODUCT", "DEPLOYMENT", "VERSION", "DETECTED"}, rows)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached deployments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := store.NewSQLiteStore(store.DefaultPath())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Clear(cmd.Context()); err != nil {
			return err
		}
		printer.Line("Deployment cache cleared.")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop expired cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := store.NewSQLiteStore(store.DefaultPath())
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.Prune(cmd.Context())
		if err != nil {
			return err
		}
		printer.Line("Pruned %d expired entr%s.", n, pluralY(n))
		return nil
	},
}

func pluralY(n int64) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
}
