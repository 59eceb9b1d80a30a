package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/quill/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the correction API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		// Set up graceful shutdown.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case sig := <-sigCh:
				fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
				cancel()
			case <-ctx.Done():
			}
		}()

		// The model loads before the listener opens; a load failure means
		// no request is ever accepted.
		eng, corr, err := newEngine(ctx, cfg)
		if err != nil {
			slog.Error("startup failed", "error", err)
			return err
		}
		defer corr.Close()

		gin.SetMode(gin.ReleaseMode)
		srv := server.New(eng, server.Options{
			RequestTimeout:    cfg.Server.RequestTimeout,
			MaxRequestTimeout: cfg.Server.MaxRequestTimeout,
			ShutdownTimeout:   cfg.Server.ShutdownTimeout,
			MaxConcurrent:     cfg.Server.MaxConcurrent,
			MaxBodyBytes:      cfg.Server.MaxBodyBytes,
			ExposeErrors:      cfg.Server.ExposeErrors,
			Logger:            slog.Default(),
		})

		if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
			slog.Error("server error", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides QUILL_ADDR)")
}
