package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/budget-report/internal/server"
)

// serveAddr overrides server.addr from the configuration.
var serveAddr string

// shutdownTimeout bounds the wait for in-flight requests on exit.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve both pipelines over HTTP",
	Long: `The serve command starts the HTTP API. Each client creates a session and
uploads, runs and downloads through it; sessions are kept in memory and the
least recently used one is dropped when server.max_sessions is reached.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		store, err := server.NewStore(cfg.Server.MaxSessions, cfg.ReportOptions(), cfg.MergeOptions(), logger)
		if err != nil {
			return err
		}
		handler := server.NewHandler(store, cfg.Server.MaxUploadBytes, logger)
		srv := server.New(addr, handler.Routes(), logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
			return err
		}
		return <-errCh
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}
