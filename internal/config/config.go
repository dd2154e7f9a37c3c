package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	StoreDriverSQLite = "sqlite"
	StoreDriverBadger = "badger"

	// DevJWTSecret is the placeholder secret written to fresh config files.
	DevJWTSecret = "dev-secret-change-me"

	maxHistoryLimit = 50

	// frameEnvelopeBytes covers the inbound envelope and an escaped senderId.
	frameEnvelopeBytes = 1 << 10
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	StoreDriver  string `mapstructure:"store_driver" yaml:"store_driver"`
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	BadgerPath   string `mapstructure:"badger_path" yaml:"badger_path"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	// JWTRequired refuses WebSocket handshakes without a token.
	JWTRequired         bool `mapstructure:"jwt_required" yaml:"jwt_required"`
	HistoryRequiresAuth bool `mapstructure:"history_requires_auth" yaml:"history_requires_auth"`

	HistoryLimit       int   `mapstructure:"history_limit" yaml:"history_limit"`
	MaxTextBytes       int   `mapstructure:"max_text_bytes" yaml:"max_text_bytes"`
	MaxFrameBytes      int64 `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`
	OutboxSize         int   `mapstructure:"outbox_size" yaml:"outbox_size"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                ":8000",
		ReadHeaderTimeout:   5 * time.Second,
		ShutdownTimeout:     5 * time.Second,
		LogLevel:            "info",
		LogFormat:           "console",
		StoreDriver:         StoreDriverSQLite,
		DatabasePath:        "docify.db",
		BadgerPath:          "data/messages",
		JWTSecret:           DevJWTSecret,
		JWTIssuer:           "docify",
		JWTAudience:         "",
		JWTRequired:         false,
		HistoryRequiresAuth: true,
		HistoryLimit:        50,
		MaxTextBytes:        4096,
		MaxFrameBytes:       32 << 10,
		OutboxSize:          64,
		RateLimitPerMinute:  60,
	}
}

// MinFrameBytes is the smallest frame limit that fits a JSON-escaped text of
// maxTextBytes. A control character escapes to six bytes (\u00XX).
func MinFrameBytes(maxTextBytes int) int64 {
	return 6*int64(maxTextBytes) + frameEnvelopeBytes
}

// Validate reports configuration values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	switch c.StoreDriver {
	case StoreDriverSQLite:
	case StoreDriverBadger:
		if c.BadgerPath == "" {
			errs = append(errs, errors.New("badger_path is required for the badger driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store_driver %q", c.StoreDriver))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.HistoryLimit < 1 || c.HistoryLimit > maxHistoryLimit {
		errs = append(errs, fmt.Errorf("history_limit must be within 1..%d", maxHistoryLimit))
	}
	if c.MaxTextBytes <= 0 {
		errs = append(errs, errors.New("max_text_bytes must be positive"))
	}
	if c.MaxTextBytes > 0 && c.MaxFrameBytes < MinFrameBytes(c.MaxTextBytes) {
		errs = append(errs, fmt.Errorf("max_frame_bytes must be at least %d for max_text_bytes %d", MinFrameBytes(c.MaxTextBytes), c.MaxTextBytes))
	}
	if c.OutboxSize <= 0 {
		errs = append(errs, errors.New("outbox_size must be positive"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("rate_limit_per_minute must not be negative"))
	}
	return errors.Join(errs...)
}
