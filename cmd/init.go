package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anhnt/edge/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create a .edge.yml and a starter views directory",
	Long: `Write a default .edge.yml and a views directory with a sample page and
component. Existing files are left alone unless --force is set.

Examples:
  edge init            # In the current directory
  edge init site       # In ./site
  edge init --force    # Overwrite existing files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initForce   bool
	initNoViews bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().BoolVar(&initNoViews, "no-views", false, "Only write the config file")
}

const sampleHome = `@component('components/card', { title: 'Welcome' })
  <p>Hello {{ name ?? 'guest' }}!</p>
  @slot('footer')
    Thanks for visiting
  @end
@end

<ul>
@each((item, index) in items)
  <li>{{ index + 1 }}. {{ item }}</li>
@else
  <li>Nothing here yet</li>
@end
</ul>
`

const sampleCard = `<div class="card">
  <h2>{{ title }}</h2>
  {{ $slot.yield }}
  @if($slot.footer)
    <footer>{{ $slot.footer }}</footer>
  @end
</div>
`

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	out := cmd.OutOrStdout()
	cfgPath := filepath.Join(dir, config.FileName+".yml")
	if err := config.WriteFile(config.Default(), cfgPath, initForce); err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s\n", cfgPath)

	if initNoViews {
		return nil
	}

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(dir, "views", "home.edge"), sampleHome},
		{filepath.Join(dir, "views", "components", "card.edge"), sampleCard},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil && !initForce {
			fmt.Fprintf(out, "skipped %s (exists)\n", f.path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(f.path), err)
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		fmt.Fprintf(out, "created %s\n", f.path)
	}

	fmt.Fprintln(out, "\nNext: edge render home --data '{\"name\": \"you\", \"items\": [\"a\", \"b\"]}'")
	return nil
}
