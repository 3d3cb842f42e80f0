package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/horizons/internal/api"
	"github.com/star/horizons/internal/client"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	Long:  `Serve decoded Horizons records as JSON over HTTP until SIGINT or SIGTERM.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "override listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := cfg.HTTPAddr
	if listenAddr != "" {
		addr = listenAddr
	}

	c := client.New(cfg.Client, logger)
	srv := api.NewServer(addr, logger, c, api.Options{
		Auth:               cfg.Auth,
		TrustProxy:         cfg.TrustProxy,
		MaxConcurrentPerIP: cfg.Limits.MaxConcurrentPerIP,
		MaxConcurrent:      cfg.Limits.MaxConcurrent,
	})

	ctx := cmd.Context()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", cfg.Auth.Enabled, "upstream", c.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
