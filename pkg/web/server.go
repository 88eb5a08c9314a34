// Package web exposes the proctoring engine over HTTP and websockets:
// session lifecycle and snapshots over REST, browser signals and landmark
// frames in over websockets, and warning output fanned out to consumers.
package web

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/proctorwatch/go-proctor/internal/log"
	"github.com/proctorwatch/go-proctor/pkg/envmon"
	"github.com/proctorwatch/go-proctor/pkg/facemesh"
	"github.com/proctorwatch/go-proctor/pkg/hub"
	"github.com/proctorwatch/go-proctor/pkg/session"
	"github.com/proctorwatch/go-proctor/pkg/vision"
)

// Server is the proctor API server.
type Server struct {
	app      *fiber.App
	port     string
	sessions *session.Manager

	// provider, when set, enables server-side inference: clients post raw
	// JPEG frames and a per-session pump drives the analyzer. When nil,
	// clients run the mesh themselves and push landmark frames instead.
	provider facemesh.Provider

	visionCfg vision.Config
	envCfg    envmon.Config

	alertHub *hub.Hub

	mu     sync.Mutex
	pumps  map[string]context.CancelFunc
	frames map[string]*frameBuffer
}

// NewServer creates the API server. provider may be nil.
func NewServer(port string, provider facemesh.Provider, vcfg vision.Config, ecfg envmon.Config) *Server {
	s := &Server{
		port:      port,
		sessions:  session.NewManager(),
		provider:  provider,
		visionCfg: vcfg,
		envCfg:    ecfg,
		alertHub:  hub.New("alerts"),
		pumps:     make(map[string]context.CancelFunc),
		frames:    make(map[string]*frameBuffer),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Proctor Engine",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Post("/sessions", s.handleCreateSession)
	api.Get("/sessions/:id", s.handleGetSession)
	api.Delete("/sessions/:id", s.handleDeleteSession)
	api.Post("/sessions/:id/calibrate", s.handleCalibrate)
	api.Post("/sessions/:id/frame", s.handlePostFrame)
	api.Post("/sessions/:id/capture", s.handleCapture)
	api.Post("/sessions/:id/reset", s.handleReset)
	api.Post("/sessions/:id/stop", s.handleStop)
	api.Get("/sessions/:id/violations", s.handleViolations)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/sessions/:id/signals", websocket.New(s.handleSignalsWS))
	app.Get("/ws/sessions/:id/frames", websocket.New(s.handleFramesWS))
	app.Get("/ws/alerts", websocket.New(s.handleAlertsWS))

	s.app = app
	return s
}

// Start runs the hub and listens. Blocks until shutdown.
func (s *Server) Start() error {
	go s.alertHub.Run()
	log.Info("web: listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown stops the listener and every session.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	for id, cancel := range s.pumps {
		cancel()
		delete(s.pumps, id)
	}
	s.mu.Unlock()

	s.sessions.Close()
	return s.app.Shutdown()
}

// Sessions exposes the manager (used by cmd wiring and tests).
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// attach wires a session's monitor output into the alert hub and, in
// server-side inference mode, starts its frame pump.
func (s *Server) attach(sess *session.Session) {
	id := sess.ID

	// The observer runs under the monitor's mutex; the level comes in as an
	// argument so we never call back into the monitor here.
	sess.Monitor.OnViolation(func(v envmon.Violation, level envmon.WarningLevel) {
		s.alertHub.BroadcastJSON(alertMessage{
			SessionID: id,
			Kind:      "violation",
			Violation: &v,
			Level:     string(level),
		})
	})
	sess.Monitor.OnTermination(func(violations []envmon.Violation) {
		s.alertHub.BroadcastJSON(alertMessage{
			SessionID:  id,
			Kind:       "termination",
			Violations: violations,
		})
	})

	if s.provider == nil {
		return
	}

	buf := newFrameBuffer()
	source := facemesh.NewSource(s.provider, buf.latest)
	pump := vision.NewPump(sess.Analyzer, source, func(frame vision.Frame) {
		if frame.Level != vision.LevelOK {
			s.alertHub.BroadcastJSON(alertMessage{
				SessionID: id,
				Kind:      "frame",
				Frame:     &frame,
			})
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go pump.Run(ctx)

	s.mu.Lock()
	s.pumps[id] = cancel
	s.frames[id] = buf
	s.mu.Unlock()
}

// stopPump cancels a session's frame pump if one is running. Canceling the
// pump also resets the analyzer's suspicion counter.
func (s *Server) stopPump(id string) {
	s.mu.Lock()
	if cancel, ok := s.pumps[id]; ok {
		cancel()
		delete(s.pumps, id)
	}
	s.mu.Unlock()
}

// detach cancels a session's pump and drops its frame buffer.
func (s *Server) detach(id string) {
	s.stopPump(id)
	s.mu.Lock()
	delete(s.frames, id)
	s.mu.Unlock()
}

// alertMessage is the alert hub wire format.
type alertMessage struct {
	SessionID  string             `json:"session_id"`
	Kind       string             `json:"kind"` // violation, termination, frame
	Violation  *envmon.Violation  `json:"violation,omitempty"`
	Violations []envmon.Violation `json:"violations,omitempty"`
	Frame      *vision.Frame      `json:"frame,omitempty"`
	Level      string             `json:"level,omitempty"`
}
