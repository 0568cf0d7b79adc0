package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anhnt/edge/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the version, git commit, build time, Go version and platform.

Examples:
  edge version            # Full version
  edge version --short    # Version number only
  edge version -o json    # JSON`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

var (
	versionFlags *OutputFlags
	versionShort bool
)

func init() {
	rootCmd.AddCommand(versionCmd)

	versionFlags = AddOutputFlags(versionCmd, "text", "json", "yaml")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show the version number only")
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()
	out := cmd.OutOrStdout()

	switch {
	case versionFlags.Quiet:
		return nil
	case versionFlags.Format != "text":
		return writeStructured(out, versionFlags.Format, info)
	case versionShort:
		fmt.Fprintln(out, info.Short())
	default:
		fmt.Fprintln(out, info.String())
	}
	return nil
}
