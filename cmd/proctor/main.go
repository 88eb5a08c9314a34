// Proctor Engine server. Hosts proctoring sessions over HTTP and
// websockets, optionally backed by a landmark inference service.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/proctorwatch/go-proctor/internal/config"
	"github.com/proctorwatch/go-proctor/internal/log"
	"github.com/proctorwatch/go-proctor/pkg/envmon"
	"github.com/proctorwatch/go-proctor/pkg/facemesh"
	"github.com/proctorwatch/go-proctor/pkg/vision"
	"github.com/proctorwatch/go-proctor/pkg/web"
)

func main() {
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	port := flag.String("port", "", "Listen port (overrides PORT env var)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel)

	provider, err := newProvider(cfg)
	if err != nil {
		log.Error("facemesh provider unavailable", "error", err)
		os.Exit(1)
	}

	vcfg := vision.DefaultConfig()
	vcfg.FrameInterval = cfg.FrameInterval
	vcfg.DetectTimeout = cfg.FacemeshTimeout

	server := web.NewServer(cfg.Port, provider, vcfg, envmon.DefaultConfig())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
		}
	}

	if err := server.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if provider != nil {
		provider.Close()
	}
}

// newProvider builds the inference client when FACEMESH_URL is set and
// verifies the backend is reachable. A nil provider means sessions run in
// push mode only.
func newProvider(cfg *config.Server) (facemesh.Provider, error) {
	if cfg.FacemeshURL == "" {
		log.Info("no facemesh backend configured; running in push mode")
		return nil, nil
	}

	client, err := facemesh.NewClient(
		facemesh.WithBaseURL(cfg.FacemeshURL),
		facemesh.WithAPIKey(cfg.FacemeshAPIKey),
		facemesh.WithTimeout(cfg.FacemeshTimeout),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FacemeshTimeout)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		if errors.Is(err, facemesh.ErrBackendUnavailable) {
			return nil, err
		}
		log.Warn("facemesh health check degraded", "error", err)
	}

	log.Info("facemesh backend connected", "url", cfg.FacemeshURL)
	return client, nil
}
