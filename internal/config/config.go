// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Server holds process-level configuration for the proctor server.
type Server struct {
	// Port the HTTP/websocket server listens on.
	Port string `env:"PORT" envDefault:"8090"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// FacemeshURL is the base URL of the landmark inference service.
	// Empty means frames must be pushed by clients (browser-side mesh).
	FacemeshURL string `env:"FACEMESH_URL"`

	// FacemeshAPIKey authenticates against the inference service.
	FacemeshAPIKey string `env:"FACEMESH_API_KEY"`

	// FacemeshTimeout bounds a single inference call.
	FacemeshTimeout time.Duration `env:"FACEMESH_TIMEOUT" envDefault:"5s"`

	// FrameInterval is how often the frame pump requests a new frame.
	FrameInterval time.Duration `env:"FRAME_INTERVAL" envDefault:"500ms"`
}

// Load reads .env (if present) and parses the environment into a Server.
func Load() (*Server, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return &cfg, nil
}
