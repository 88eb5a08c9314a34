// Package session scopes the two detectors to one proctored test session.
// Sessions are explicit objects owned by the caller; nothing here is a
// process-wide singleton, so one server can proctor many sessions at once.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/proctorwatch/go-proctor/pkg/envmon"
	"github.com/proctorwatch/go-proctor/pkg/facemesh"
	"github.com/proctorwatch/go-proctor/pkg/snapshot"
	"github.com/proctorwatch/go-proctor/pkg/vision"
)

// maxStills bounds the warning-moment captures retained per session.
const maxStills = 32

// Still is one retained warning-moment capture.
type Still struct {
	TakenAt time.Time `json:"taken_at"`
	Reason  string    `json:"reason"`
	JPEG    []byte    `json:"-"`
}

// Session owns one analyzer/monitor pair. The two detectors share no
// mutable state and may be driven concurrently.
type Session struct {
	ID        string
	CreatedAt time.Time

	Analyzer *vision.Analyzer
	Monitor  *envmon.Monitor

	// Feed receives landmark frames pushed by the client and drives the
	// analyzer's frame pump.
	Feed *facemesh.Feed

	mu     sync.Mutex
	stills []Still
}

// CaptureStill normalizes and retains a JPEG taken at a warning moment.
// The oldest capture is dropped once the per-session bound is reached.
func (s *Session) CaptureStill(reason string, jpeg []byte) error {
	normalized, err := snapshot.Normalize(jpeg, snapshot.DefaultMaxWidth)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stills = append(s.stills, Still{TakenAt: time.Now(), Reason: reason, JPEG: normalized})
	if len(s.stills) > maxStills {
		s.stills = s.stills[1:]
	}
	return nil
}

// Stills returns a copy of the retained captures.
func (s *Session) Stills() []Still {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Still(nil), s.stills...)
}

// Close stops both detectors. Safe from any state.
func (s *Session) Close() {
	s.Analyzer.Stop()
	s.Monitor.Stop()
}

// Manager creates and tracks sessions by ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create builds a new session from the detector configs.
func (m *Manager) Create(vcfg vision.Config, ecfg envmon.Config) (*Session, error) {
	analyzer, err := vision.NewAnalyzer(vcfg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Analyzer:  analyzer,
		Monitor:   envmon.NewMonitor(ecfg),
		Feed:      facemesh.NewFeed(2 * vcfg.FrameInterval),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove stops and forgets a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every session and empties the manager.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
