package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anhnt/edge/internal/config"
)

var cfgFile string

// flagBindings maps flags to configuration keys. Flags are bound when a
// command runs so that only the flags of that command take part.
var flagBindings = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"views":      "views.root",
	"whitespace": "views.whitespace",
	"cache-size": "cache.size",
	"port":       "server.port",
	"host":       "server.host",
	"no-watch":   "watch.enabled",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "edge",
	Short: "Compile, check and preview edge templates",
	Long: `edge is a template engine with a Blade-like syntax: {{ }} interpolation,
@if, @each, @include, @component and @slot tags, and isolated component
scopes.

Quick Start:
  edge init                       Write .edge.yml and a views directory
  edge render home                Render views/home.edge
  edge check                      Compile every template
  edge serve                      Start the preview server

Configuration is read from .edge.yml (or --config / EDGE_CONFIG_FILE) and
can be overridden with EDGE_<SECTION>_<OPTION> environment variables, e.g.
EDGE_SERVER_PORT=3000.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .edge.yml, can also use EDGE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("views", "./views", "directory of the default disk")

	AddFlagValidation(rootCmd.PersistentFlags(), "log-level", func(v string) error {
		return ValidateChoice("log level", v, []string{"debug", "info", "warn", "error"})
	})
	AddFlagValidation(rootCmd.PersistentFlags(), "log-format", func(v string) error {
		return ValidateChoice("log format", v, []string{"text", "json"})
	})
}

// initConfig points viper at the config file and binds the flags of cmd.
func initConfig(cmd *cobra.Command, args []string) error {
	if err := config.Setup(viper.GetViper(), cfgFile); err != nil {
		return err
	}
	for flag, key := range flagBindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if flag == "no-watch" {
			if f.Changed && f.Value.String() == "true" {
				viper.Set(key, false)
			}
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}
