package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rentme-app/internal/infra/config"
	ginserver "rentme-app/internal/infra/http/gin"
	"rentme-app/internal/infra/obs"
)

const (
	Version = "0.1.0"
	appName = "rentme"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Marketplace client core",
		Long:          "Runs the session, swap and messaging stores of the rentme client with a local HTTP bridge.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Hydrate the stores and serve the HTTP bridge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), logLevel)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "snapshot",
		Short: "Print the persisted state of every store as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return snapshot(cmd.Context(), cmd, logLevel)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func loadConfig(logLevel string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func serve(parent context.Context, logLevel string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(logLevel)
	if err != nil {
		return err
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.hydrate(ctx); err != nil {
		return err
	}
	app.startWorker(ctx)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: app.ready}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP bridge starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("HTTP bridge stopped")
	return nil
}

type snapshotDocument struct {
	Session any `json:"session"`
	Swaps   any `json:"swaps"`
	Chats   any `json:"chats"`
}

func snapshot(ctx context.Context, cmd *cobra.Command, logLevel string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(logLevel)
	if err != nil {
		return err
	}
	// read-only: no broker connection
	cfg.KafkaBrokers = nil
	logger := obs.NewLoggerTo(cmd.ErrOrStderr(), cfg.Env, "error")

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()
	if err := app.hydrate(ctx); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(snapshotDocument{
		Session: app.sessions.Snapshot(),
		Swaps:   app.swaps.Snapshot(),
		Chats:   app.chats.Snapshot(),
	})
}
