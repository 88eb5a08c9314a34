package web

import (
	"context"
	"sync"

	"github.com/gofiber/websocket/v2"

	"github.com/proctorwatch/go-proctor/internal/log"
	"github.com/proctorwatch/go-proctor/pkg/envmon"
	"github.com/proctorwatch/go-proctor/pkg/hub"
	"github.com/proctorwatch/go-proctor/pkg/landmark"
	"github.com/proctorwatch/go-proctor/pkg/vision"
)

// signalMessage is one inbound message on the signals socket. The browser
// sends discrete events and periodic window metrics on the same channel.
type signalMessage struct {
	Event   *envmon.Event   `json:"event,omitempty"`
	Metrics *displayMetrics `json:"metrics,omitempty"`
}

// displayMetrics is the browser's window geometry report.
type displayMetrics struct {
	InnerWidth  int  `json:"inner_width"`
	InnerHeight int  `json:"inner_height"`
	OuterWidth  int  `json:"outer_width"`
	OuterHeight int  `json:"outer_height"`
	Fullscreen  bool `json:"fullscreen"`
}

// displayCommand is an outbound fullscreen instruction for the browser.
type displayCommand struct {
	Command string `json:"command"` // request_fullscreen, exit_fullscreen
}

// wsError is the error shape written before closing a rejected socket.
type wsError struct {
	Error string `json:"error"`
}

// displayProxy satisfies envmon.Display over a signals socket: it serves
// the last-reported metrics and relays fullscreen commands to the browser
// through a buffered channel drained by the socket's writer goroutine.
type displayProxy struct {
	mu       sync.Mutex
	metrics  displayMetrics
	commands chan displayCommand
}

func newDisplayProxy() *displayProxy {
	return &displayProxy{commands: make(chan displayCommand, 8)}
}

func (p *displayProxy) update(m displayMetrics) {
	p.mu.Lock()
	p.metrics = m
	p.mu.Unlock()
}

func (p *displayProxy) InnerSize() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics.InnerWidth, p.metrics.InnerHeight
}

func (p *displayProxy) OuterSize() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics.OuterWidth, p.metrics.OuterHeight
}

func (p *displayProxy) IsFullscreen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics.Fullscreen
}

func (p *displayProxy) RequestFullscreen() error {
	return p.send(displayCommand{Command: "request_fullscreen"})
}

func (p *displayProxy) ExitFullscreen() error {
	return p.send(displayCommand{Command: "exit_fullscreen"})
}

// send is non-blocking; a full channel means the socket is stalled and the
// command is dropped rather than wedging the monitor.
func (p *displayProxy) send(cmd displayCommand) error {
	select {
	case p.commands <- cmd:
		return nil
	default:
		return envmon.ErrDisplayBusy
	}
}

// handleSignalsWS drives a session's environment monitor from browser
// signals. Monitoring starts on connect and stops on disconnect.
func (s *Server) handleSignalsWS(c *websocket.Conn) {
	defer c.Close()

	sess, ok := s.sessions.Get(c.Params("id"))
	if !ok {
		c.WriteJSON(wsError{Error: "session not found"})
		return
	}

	proxy := newDisplayProxy()
	if err := sess.Monitor.Start(proxy); err != nil {
		c.WriteJSON(wsError{Error: err.Error()})
		return
	}
	defer sess.Monitor.Stop()

	// Sole writer for this connection.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case cmd := <-proxy.commands:
				if err := c.WriteJSON(cmd); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		var msg signalMessage
		if err := c.ReadJSON(&msg); err != nil {
			log.Debug("web: signals socket closed", "session", sess.ID, "error", err)
			return
		}
		if msg.Metrics != nil {
			proxy.update(*msg.Metrics)
		}
		if msg.Event != nil {
			sess.Monitor.HandleEvent(*msg.Event)
		}
	}
}

// frameMessage is one inbound landmark frame on the frames socket.
type frameMessage struct {
	Faces []landmark.Face `json:"faces"`
}

// handleFramesWS ingests landmark frames pushed by a client-side mesh. The
// read loop only feeds the session; a pump paces analysis at the configured
// frame interval, pulling the latest pushed frame and dropping anything the
// client sent in between. Results go back down the socket and, when not OK,
// to the alert hub. The pump goroutine is the connection's sole writer.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	defer c.Close()

	sess, ok := s.sessions.Get(c.Params("id"))
	if !ok {
		c.WriteJSON(wsError{Error: "session not found"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pump := vision.NewPump(sess.Analyzer, sess.Feed, func(frame vision.Frame) {
		if err := c.WriteJSON(frame); err != nil {
			cancel()
			return
		}
		if frame.Level != vision.LevelOK {
			s.alertHub.BroadcastJSON(alertMessage{
				SessionID: sess.ID,
				Kind:      "frame",
				Frame:     &frame,
			})
		}
	})
	go pump.Run(ctx)

	for {
		var msg frameMessage
		if err := c.ReadJSON(&msg); err != nil {
			log.Debug("web: frames socket closed", "session", sess.ID, "error", err)
			return
		}
		sess.Feed.Push(msg.Faces)
	}
}

// handleAlertsWS attaches a consumer to the alert hub.
func (s *Server) handleAlertsWS(c *websocket.Conn) {
	hub.NewClient(s.alertHub, c).Run()
}
