package cli

import (
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Build and validate the skills registry manifest",
}

var (
	registryBuildDir string
	registryBuildOut string
)

var registryBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generate registry.json from a skills tree",
	Long: `Walks a directory of skills (one SKILL.md per subdirectory),
validates each one, and writes the registry manifest. Without --dir the
skills embedded in this binary are used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var fsys fs.FS = registry.Embedded()
		if registryBuildDir != "" {
			fsys = os.DirFS(registryBuildDir)
		}

		manifest, err := registry.Build(fsys)
		if err != nil {
			return err
		}
		if err := manifest.WriteFile(registryBuildOut); err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(manifest)
		}
		printer.Line("Wrote %s with %d skills.", registryBuildOut, len(manifest.Skills))
		return nil
	},
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate a registry.json against the schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := registry.ValidateManifest(data); err != nil {
			return err
		}
		printer.Line("%s is valid.", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryBuildCmd)
	registryCmd.AddCommand(registryValidateCmd)

	registryBuildCmd.Flags().StringVar(&registryBuildDir, "dir", "", "skills directory (default: embedded skills)")
	registryBuildCmd.Flags().StringVar(&registryBuildOut, "out", "registry.json", "output file")
}
