package facemesh

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/proctorwatch/go-proctor/internal/httpc"
	"github.com/proctorwatch/go-proctor/internal/log"
)

// Config holds client configuration.
type Config struct {
	// BaseURL of the inference service, e.g. "http://localhost:9400".
	BaseURL string

	// APIKey sent as a bearer token (optional for local backends).
	APIKey string

	// Timeout bounds a single Detect request.
	Timeout time.Duration

	// HTTPClient overrides the shared default client.
	HTTPClient *http.Client

	// Logger for request diagnostics.
	Logger *slog.Logger
}

// DefaultConfig returns client defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		Logger:  log.L(),
	}
}

// Apply applies the options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithBaseURL sets the inference service base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// httpClient resolves the client to use for requests.
func (c *Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return httpc.NewClient(c.Timeout)
}
