package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/docify-community/internal/config"
	"github.com/vovakirdan/docify-community/internal/core"
	transporthttp "github.com/vovakirdan/docify-community/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	gateway         *core.Gateway
	stores          *Stores
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	stores, err := OpenStores(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.JWTSecret == config.DevJWTSecret {
		logger.Warn().Msg("jwt_secret is the development default; set DOCIFY_JWT_SECRET in production")
	}

	messages := core.NewMessageStore(stores.Messages, stores.Users, cfg.MaxTextBytes)
	registry := core.NewRegistry()
	broadcaster := core.NewBroadcaster(messages, registry, logger)
	gateway := core.NewGateway(registry, broadcaster, cfg.OutboxSize, logger)

	server := transporthttp.NewServer(gateway, messages, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		gateway:         gateway,
		stores:          stores,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("starting community server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.gateway.Shutdown()
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		err := a.server.Shutdown(shutdownCtx)
		// Hijacked WebSocket connections are not tracked by http.Server.
		a.gateway.Shutdown()
		if err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.stores != nil {
		if err := a.stores.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
