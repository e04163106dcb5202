package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tablechat/tablechat/internal/ingest"
	"github.com/tablechat/tablechat/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Serve the upload and query endpoints over HTTP until interrupted.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides configuration)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	application, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		application.cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(
		application.cfg.Server,
		application.backend,
		application.pipeline,
		ingest.New(application.backend, application.logger),
		application.logger,
	)

	return srv.ListenAndServe(ctx)
}
