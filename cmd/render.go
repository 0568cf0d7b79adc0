package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:     "render [template]",
	Aliases: []string{"r"},
	Short:   "Render a template",
	Long: `Render a template from the configured disks, or template source given
with --string, and print the result.

Data is inline JSON or YAML, or a .json/.yml/.yaml file (optionally
prefixed with @).

Examples:
  edge render home                         # views/home.edge
  edge render mail::welcome --data @user.yml
  edge render home -d '{"user": {"name": "virk"}}' -O out.html
  edge render --string 'Hello {{ name }}' -d 'name: virk'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

var (
	renderData   string
	renderSource string
	renderOutput string
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderData, "data", "d", "", "Template data (JSON, YAML or a file)")
	renderCmd.Flags().StringVarP(&renderSource, "string", "s", "", "Render this template source instead of a named template")
	renderCmd.Flags().StringVarP(&renderOutput, "out", "O", "", "Write the output to a file")
	renderCmd.Flags().String("whitespace", "all", "Raw text whitespace mode (all, controlled, none)")
}

func runRender(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (renderSource == "") {
		return fmt.Errorf("give either a template name or --string")
	}

	data, err := ParseData(renderData)
	if err != nil {
		return err
	}

	s, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	var out string
	if renderSource != "" {
		out, err = s.edge.RenderString(renderSource, data)
	} else {
		out, err = s.edge.Render(args[0], data)
	}
	if err != nil {
		return err
	}

	if renderOutput == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(renderOutput, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", renderOutput, err)
	}
	s.logger.Info(cmd.Context(), "rendered", "output", renderOutput, "bytes", len(out))
	return nil
}
