package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anhnt/edge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the preview server with live reload",
	Long: `Start the preview server. Every template is available at
/render/<name>, with data taken from the "data" query parameter or a JSON
POST body. Compile errors are shown in an overlay and open pages reload
when a template changes on disk.

Examples:
  edge serve                  # http://localhost:8080
  edge serve -p 3000          # Different port
  edge serve --no-watch       # Disable live reload`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("no-watch", false, "Don't watch templates for changes")
	serveCmd.Flags().Int("cache-size", 512, "Compiled template cache size (0 disables caching)")
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Previewing templates at http://%s\n", s.config.Address())
	if err := server.New(s.config, s.edge, s.logger).Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
