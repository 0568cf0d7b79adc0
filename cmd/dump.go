package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <template>",
	Short: "Print the compiled program or the tokens of a template",
	Long: `Print the instruction listing a template compiles to. With --tokens the
lexer output is printed instead, one token per line with its position.

Examples:
  edge dump home
  edge dump components/card --tokens`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

var dumpTokens bool

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVarP(&dumpTokens, "tokens", "t", false, "Print lexer tokens instead of the program")
}

func runDump(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if dumpTokens {
		tokens, err := s.edge.Tokens(args[0])
		if err != nil {
			return err
		}
		for _, tok := range tokens {
			fmt.Fprintf(out, "%d:%d\t%s\n", tok.Pos.Line, tok.Pos.Column, tok.String())
		}
		return nil
	}

	proc, err := s.edge.Compile(args[0])
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, proc.String())
	return err
}
