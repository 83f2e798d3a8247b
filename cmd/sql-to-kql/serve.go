package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/dodopizza/sql-to-kql/cmd/sql-to-kql/api"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			srv, err := api.NewServer(cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			httpServer := &http.Server{
				Addr:         cfg.ListenAddr,
				Handler:      srv,
				ReadTimeout:  60 * time.Second,
				WriteTimeout: cfg.QueryTimeout.Duration + 10*time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.WatchViews(ctx); err != nil {
				klog.ErrorS(err, "Failed to watch views directory, reading views from disk", "dir", cfg.ViewsDir)
			}

			errCh := make(chan error, 1)
			go func() {
				klog.InfoS("Listening", "addr", cfg.ListenAddr, "cluster", cfg.Cluster, "database", cfg.Database)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			klog.InfoS("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				klog.ErrorS(err, "Server forced to shutdown")
			}
			klog.InfoS("Server stopped")
			return nil
		},
	}
}
