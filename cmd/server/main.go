package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/docify-community/internal/app"
	"github.com/vovakirdan/docify-community/internal/config"
	applog "github.com/vovakirdan/docify-community/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:          "docify-community",
		Short:        "Community chat server with persisted history",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (default ./config.yaml)")
	cmd.PersistentFlags().String("log-level", defaults.LogLevel, "log level: debug, info, warn, error")
	cmd.PersistentFlags().String("store-driver", defaults.StoreDriver, "message log driver: sqlite or badger")
	cmd.PersistentFlags().String("database-path", defaults.DatabasePath, "SQLite database path")
	cmd.PersistentFlags().String("badger-path", defaults.BadgerPath, "Badger message log directory")

	cmd.Flags().String("addr", defaults.Addr, "HTTP listen address")
	cmd.Flags().Duration("read-header-timeout", defaults.ReadHeaderTimeout, "HTTP read header timeout")
	cmd.Flags().Duration("shutdown-timeout", defaults.ShutdownTimeout, "graceful shutdown timeout")
	cmd.Flags().String("log-format", defaults.LogFormat, "log format: console or json")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	serve.Flags().AddFlagSet(cmd.Flags())

	cmd.AddCommand(serve, newHistoryCmd(opts), newUserCmd(opts), newTokenCmd(opts))
	return cmd
}

// loadConfig resolves configuration for cmd, logging to w.
func loadConfig(cmd *cobra.Command, opts *rootOptions, w io.Writer) (*config.Config, *zerolog.Logger, error) {
	bootstrap := applog.NewWithWriter(w, "info", "console")

	cfg, path, err := config.Load(bootstrap, opts.configPath, cmd.Flags())
	if err != nil {
		bootstrap.Error().Err(err).Str("path", path).Msg("failed to load config")
		return nil, nil, err
	}

	logger := applog.NewWithWriter(w, cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("path", path).Msg("config loaded")
	return &cfg, logger, nil
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, logger, err := loadConfig(cmd, opts, os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		return err
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return fmt.Errorf("run: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// withStores runs fn against freshly opened stores and closes them afterwards.
func withStores(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, cfg *config.Config, stores *app.Stores) error) error {
	cfg, logger, err := loadConfig(cmd, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	stores, err := app.OpenStores(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close store")
		}
	}()

	return fn(cmd.Context(), cfg, stores)
}
