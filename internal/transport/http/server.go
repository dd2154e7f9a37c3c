package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docify-community/internal/auth"
	"github.com/vovakirdan/docify-community/internal/config"
	"github.com/vovakirdan/docify-community/internal/core"
)

// NewServer builds an HTTP server with the health, history and WebSocket routes.
func NewServer(gateway *core.Gateway, messages *core.MessageStore, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	history := NewHistoryHandlers(messages, cfg.HistoryLimit, logger)
	community := router.Group("/community")
	if cfg.HistoryRequiresAuth {
		community.Use(AuthMiddleware(jwtConfig, logger))
	}
	community.GET("/history", history.GetHistory)

	ws := NewWSHandler(gateway, WSOptions{
		JWT:                jwtConfig,
		JWTRequired:        cfg.JWTRequired,
		MaxFrameBytes:      cfg.MaxFrameBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)

	// gin's writer refuses to hijack once the 101 is written, so /ws bypasses it.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
