package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anhnt/edge/internal/loader"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l", "ls"},
	Short:   "List all templates",
	Long: `List every template on the configured disks with the disk it lives on
and its file path.

Examples:
  edge list              # Table
  edge list -o json      # JSON
  edge list --disk mail  # Only templates on the mail disk`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listFlags *OutputFlags
	listDisk  string
)

func init() {
	rootCmd.AddCommand(listCmd)

	listFlags = AddOutputFlags(listCmd, "table", "json", "yaml")
	listCmd.Flags().StringVar(&listDisk, "disk", "", "Only list templates of this disk")
}

type listEntry struct {
	Name string `json:"name" yaml:"name"`
	Disk string `json:"disk" yaml:"disk"`
	Path string `json:"path" yaml:"path"`
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	names, err := s.edge.List()
	if err != nil {
		return err
	}

	entries := make([]listEntry, 0, len(names))
	for _, name := range names {
		disk, _, err := loader.Split(name)
		if err != nil {
			return err
		}
		if listDisk != "" && disk != listDisk {
			continue
		}
		entry := listEntry{Name: name, Disk: disk}
		if tpl, err := s.edge.Loader().Resolve(name); err == nil {
			entry.Path = tpl.Path
		}
		entries = append(entries, entry)
	}

	if listFlags.Quiet {
		return nil
	}

	out := cmd.OutOrStdout()
	if listFlags.Format != "table" {
		return writeStructured(out, listFlags.Format, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No templates found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDISK\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Disk, e.Path)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal: %d templates\n", len(entries))
	return nil
}
