package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anhnt/edge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the edge configuration",
	Long: `Inspect the configuration resolved from .edge.yml, EDGE_ environment
variables and flags.

Examples:
  edge config show              # Resolved configuration as YAML
  edge config show -o json      # As JSON
  edge config validate          # Check the configuration
  edge config validate --strict # Treat warnings as errors`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration and report every problem with a hint on how
to fix it. Missing template directories are warnings unless --strict is set.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var (
	configShowFlags *OutputFlags
	configStrict    bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configShowFlags = AddOutputFlags(configShowCmd, "yaml", "json")
	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat warnings as errors")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if configShowFlags.Quiet {
		return nil
	}
	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", f)
	}
	return writeStructured(cmd.OutOrStdout(), configShowFlags.Format, cfg)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Decode(viper.GetViper())
	if err != nil {
		return err
	}

	result := config.ValidateWithDetails(cfg)
	out := cmd.OutOrStdout()
	if !result.HasErrors() && !result.HasWarnings() {
		fmt.Fprintln(out, "Configuration is valid.")
		return nil
	}

	fmt.Fprint(out, result.String())
	switch {
	case result.HasErrors():
		return fmt.Errorf("configuration has %d errors", len(result.Errors))
	case configStrict:
		return fmt.Errorf("configuration has %d warnings", len(result.Warnings))
	}
	return nil
}
