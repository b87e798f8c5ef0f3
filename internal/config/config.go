// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Upload     UploadConfig
	Batch      BatchConfig
	Generation GenerationConfig
	Session    SessionConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
	Events     EventsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including in-flight windows (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds CSV upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of uploads parsed at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a parse slot (default: 10s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"10s"`

	// PreviewRows is how many data rows are shown on the column page (default: 5)
	PreviewRows int `env:"UPLOAD_PREVIEW_ROWS" default:"5"`
}

// BatchConfig holds batch processing settings.
type BatchConfig struct {
	// WindowSize is how many products are fetched per window (default: 5)
	WindowSize int `env:"BATCH_WINDOW_SIZE" default:"5"`
}

// Image generation providers.
const (
	ProviderAuto        = "auto"
	ProviderGemini      = "gemini"
	ProviderPlaceholder = "placeholder"
)

// GenerationConfig holds image service settings.
type GenerationConfig struct {
	// Provider selects the backend: auto, gemini or placeholder (default: auto).
	// auto uses gemini when an API key is set and placeholder otherwise.
	Provider string `env:"IMAGE_PROVIDER" default:"auto"`

	// APIKey authenticates against the Gemini API
	APIKey string `env:"GEMINI_API_KEY" envAlt:"API_KEY"`

	// Model is the image-capable model (default: gemini-2.5-flash-image)
	Model string `env:"GEMINI_MODEL" default:"gemini-2.5-flash-image"`

	// BaseURL is the API endpoint (default: https://generativelanguage.googleapis.com)
	BaseURL string `env:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`

	// ImagesPerItem is how many images are requested per product (default: 3)
	ImagesPerItem int `env:"IMAGES_PER_ITEM" default:"3"`

	// RequestTimeout bounds a single generation call (default: 90s)
	RequestTimeout time.Duration `env:"GENERATION_REQUEST_TIMEOUT" default:"90s"`

	// PlaceholderSize is the edge length of offline images in pixels (default: 256)
	PlaceholderSize int `env:"PLACEHOLDER_IMAGE_SIZE" default:"256"`
}

// ResolvedProvider returns the backend to use after applying auto.
func (g *GenerationConfig) ResolvedProvider() string {
	p := strings.ToLower(g.Provider)
	if p == ProviderAuto || p == "" {
		if strings.TrimSpace(g.APIKey) != "" {
			return ProviderGemini
		}
		return ProviderPlaceholder
	}
	return p
}

// SessionConfig holds in-memory session settings.
type SessionConfig struct {
	// TTL is how long an idle session is kept (default: 2h)
	TTL time.Duration `env:"SESSION_TTL" default:"2h"`

	// JanitorInterval is how often idle sessions are swept (default: 5m)
	JanitorInterval time.Duration `env:"SESSION_JANITOR_INTERVAL" default:"5m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// UploadLimit is requests per minute for upload and window endpoints (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File additionally writes JSON logs to this path when set
	File string `env:"LOG_FILE"`
}

// EventsConfig holds optional NATS publishing settings.
type EventsConfig struct {
	// NATSURL enables publishing item transitions when set
	NATSURL string `env:"NATS_URL"`

	// Subject receives the JSON item events (default: productimages.item.status)
	Subject string `env:"NATS_SUBJECT" default:"productimages.item.status"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
