package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/anhnt/edge/internal/errors"
)

var checkCmd = &cobra.Command{
	Use:     "check [template...]",
	Aliases: []string{"c"},
	Short:   "Compile templates and report errors",
	Long: `Compile templates without rendering them and report every error with
its file, line and column. Without arguments every template on the
configured disks is checked. The command fails when any template has an
error, which makes it suitable for CI.

Examples:
  edge check                    # Check all templates
  edge check home mail::welcome # Check specific templates
  edge check -o json            # Machine-readable diagnostics`,
	RunE: runCheck,
}

var checkFlags *OutputFlags

func init() {
	rootCmd.AddCommand(checkCmd)
	checkFlags = AddOutputFlags(checkCmd, "text", "json", "yaml")
}

type checkReport struct {
	Checked int               `json:"checked" yaml:"checked"`
	Errors  []checkDiagnostic `json:"errors" yaml:"errors"`
}

type checkDiagnostic struct {
	Template string `json:"template" yaml:"template"`
	File     string `json:"file" yaml:"file"`
	Line     int    `json:"line" yaml:"line"`
	Column   int    `json:"column" yaml:"column"`
	Code     string `json:"code" yaml:"code"`
	Message  string `json:"message" yaml:"message"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	names := args
	if len(names) == 0 {
		if names, err = s.edge.List(); err != nil {
			return err
		}
	}

	collector := errors.NewErrorCollector()
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, name := range names {
		g.Go(func() error {
			if _, err := s.edge.Compile(name); err != nil {
				collector.AddError(name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := checkReport{Checked: len(names), Errors: []checkDiagnostic{}}
	for _, d := range collector.GetDiagnostics() {
		report.Errors = append(report.Errors, checkDiagnostic{
			Template: d.Template,
			File:     d.File,
			Line:     d.Line,
			Column:   d.Column,
			Code:     d.Code,
			Message:  d.Message,
		})
	}
	other := collector.GetAllErrors()[len(report.Errors):]

	out := cmd.OutOrStdout()
	switch {
	case checkFlags.Quiet:
	case checkFlags.Format == "text":
		for _, d := range report.Errors {
			fmt.Fprintf(out, "%s:%d:%d: [%s] %s\n", d.File, d.Line, d.Column, d.Code, d.Message)
		}
		for _, err := range other {
			fmt.Fprintln(out, err)
		}
		fmt.Fprintf(out, "checked %d templates, %d errors\n", report.Checked, len(report.Errors)+len(other))
	default:
		if err := writeStructured(out, checkFlags.Format, report); err != nil {
			return err
		}
	}

	if n := len(report.Errors) + len(other); n > 0 {
		return fmt.Errorf("%d of %d templates failed to compile", n, report.Checked)
	}
	return nil
}
