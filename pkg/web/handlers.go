package web

import (
	"encoding/base64"
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/proctorwatch/go-proctor/pkg/envmon"
	"github.com/proctorwatch/go-proctor/pkg/landmark"
	"github.com/proctorwatch/go-proctor/pkg/session"
	"github.com/proctorwatch/go-proctor/pkg/snapshot"
	"github.com/proctorwatch/go-proctor/pkg/vision"
)

// frameBuffer keeps the latest raw JPEG posted for a session, feeding the
// server-side inference pump.
type frameBuffer struct {
	mu   sync.Mutex
	jpeg []byte
}

var errNoFramePosted = errors.New("web: no frame posted yet")

func newFrameBuffer() *frameBuffer {
	return &frameBuffer{}
}

func (b *frameBuffer) store(jpeg []byte) {
	b.mu.Lock()
	b.jpeg = jpeg
	b.mu.Unlock()
}

func (b *frameBuffer) latest() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.jpeg == nil {
		return nil, errNoFramePosted
	}
	return b.jpeg, nil
}

// sessionState is the combined on-demand snapshot for one session.
type sessionState struct {
	ID          string       `json:"id"`
	Calibrated  bool         `json:"calibrated"`
	Suspicion   int          `json:"suspicion"`
	VisualLevel vision.Level `json:"visual_level"`
	Environment envmon.State `json:"environment"`
	Stills      int          `json:"stills"`
}

func (s *Server) snapshot(sess *session.Session) sessionState {
	return sessionState{
		ID:          sess.ID,
		Calibrated:  sess.Analyzer.Calibrated(),
		Suspicion:   sess.Analyzer.Suspicion(),
		VisualLevel: sess.Analyzer.Level(),
		Environment: sess.Monitor.State(),
		Stills:      len(sess.Stills()),
	}
}

func (s *Server) lookup(c *fiber.Ctx) (*session.Session, error) {
	sess, ok := s.sessions.Get(c.Params("id"))
	if !ok {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return sess, nil
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	sess, err := s.sessions.Create(s.visionCfg, s.envCfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	s.attach(sess)
	return c.Status(fiber.StatusCreated).JSON(s.snapshot(sess))
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	return c.JSON(s.snapshot(sess))
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	id := c.Params("id")
	s.detach(id)
	s.sessions.Remove(id)
	return c.SendStatus(fiber.StatusNoContent)
}

// calibrateRequest carries one reference face and an optional JPEG.
type calibrateRequest struct {
	Face  []landmark.Point `json:"face"`
	Image string           `json:"image,omitempty"` // base64 JPEG
}

func (s *Server) handleCalibrate(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}

	var req calibrateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	var ref []byte
	if req.Image != "" {
		raw, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid image encoding"})
		}
		if ref, err = snapshot.Normalize(raw, snapshot.DefaultMaxWidth); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	cal, err := sess.Analyzer.Calibrate(landmark.Face(req.Face), ref)
	if err != nil {
		var calErr *vision.CalibrationError
		if errors.As(err, &calErr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(cal)
}

func (s *Server) handlePostFrame(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}

	s.mu.Lock()
	buf := s.frames[sess.ID]
	s.mu.Unlock()

	if buf == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "server-side inference not configured; push landmark frames instead",
		})
	}

	body := c.Body()
	jpeg := make([]byte, len(body))
	copy(jpeg, body)
	buf.store(jpeg)
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleCapture(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}

	reason := c.Query("reason", "manual")
	if err := sess.CaptureStill(reason, c.Body()); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	sess.Monitor.ClearViolations()
	sess.Analyzer.Stop()
	return c.JSON(s.snapshot(sess))
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	s.stopPump(sess.ID)
	sess.Close()
	return c.JSON(s.snapshot(sess))
}

func (s *Server) handleViolations(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	return c.JSON(sess.Monitor.Violations())
}
