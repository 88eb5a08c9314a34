package envmon

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/proctorwatch/go-proctor/internal/log"
)

// Phase is the monitor's lifecycle state.
type Phase string

// Lifecycle phases.
const (
	PhaseIdle       Phase = "idle"
	PhaseMonitoring Phase = "monitoring"
	PhaseTerminated Phase = "terminated"
)

// State is an on-demand snapshot of the monitor.
type State struct {
	Monitoring bool                  `json:"monitoring"`
	Fullscreen bool                  `json:"fullscreen"`
	Counts     map[ViolationType]int `json:"counts"`
	Total      int                   `json:"total"`
	Level      WarningLevel          `json:"level"`
	Terminated bool                  `json:"terminated"`
}

// ViolationFunc observes each recorded violation together with the warning
// level in effect after it. Observers run synchronously with the monitor's
// mutex held and must not call back into the monitor.
type ViolationFunc func(Violation, WarningLevel)

// TerminationFunc observes the termination with the full ordered log. The
// same reentrancy constraint as ViolationFunc applies.
type TerminationFunc func([]Violation)

// Subscription is an observer registration handle. Cancel removes the
// observer from future fan-outs.
type Subscription struct {
	ID     string
	cancel func()
}

// Cancel unsubscribes. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

type violationSub struct {
	id string
	fn ViolationFunc
}

type terminationSub struct {
	id string
	fn TerminationFunc
}

// Monitor is the environment integrity detector for one session. All state
// mutation and observer fan-out are serialized behind one mutex, so the
// monitor is safe to drive from websocket handlers, the devtools poll, and
// API calls concurrently. Construct one per session.
type Monitor struct {
	mu  sync.Mutex
	cfg Config

	phase      Phase
	display    Display
	fullscreen bool

	violations []Violation
	counts     map[ViolationType]int
	level      WarningLevel

	// Resize baseline: the last *reported* size, not the original one.
	baseW, baseH int

	violationSubs   []violationSub
	terminationSubs []terminationSub

	pollStop  chan struct{}
	retry     *time.Timer
	now       func() time.Time
	newID     func() string
	afterFunc func(time.Duration, func()) *time.Timer
}

// NewMonitor creates an idle monitor.
func NewMonitor(cfg Config) *Monitor {
	return &Monitor{
		cfg:       cfg,
		phase:     PhaseIdle,
		counts:    make(map[ViolationType]int),
		level:     WarningNone,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		afterFunc: time.AfterFunc,
	}
}

// Start transitions Idle → Monitoring. It makes a best-effort fullscreen
// request on the display (failure is logged, not fatal), snapshots the
// current window size as the resize baseline, and starts the devtools
// interval poll. Starting a terminated monitor is an error; starting one
// that is already monitoring is a no-op.
func (m *Monitor) Start(display Display) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case PhaseMonitoring:
		return nil
	case PhaseTerminated:
		return fmt.Errorf("%w; call ClearViolations before restarting", ErrTerminated)
	}

	m.display = display
	m.phase = PhaseMonitoring

	if err := display.RequestFullscreen(); err != nil {
		log.Warn("envmon: fullscreen request failed", "err", err)
	}
	m.fullscreen = display.IsFullscreen()
	m.baseW, m.baseH = display.InnerSize()

	if m.cfg.DevtoolsPollInterval > 0 && m.cfg.enabled(DevTools) {
		m.pollStop = make(chan struct{})
		go m.pollDevtools(m.pollStop)
	}

	log.Info("envmon: monitoring started", "base_w", m.baseW, "base_h", m.baseH)
	return nil
}

// HandleEvent classifies one raw signal. Disabled types and events arriving
// outside the monitoring phase are ignored.
func (m *Monitor) HandleEvent(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseMonitoring {
		return
	}

	switch ev.Kind {
	case EventVisibility:
		if !ev.Visible && m.cfg.enabled(TabSwitch) {
			m.recordLocked(TabSwitch, "document hidden")
		}

	case EventBlur:
		if m.cfg.enabled(WindowBlur) {
			m.recordLocked(WindowBlur, "window lost focus")
		}

	case EventFullscreen:
		m.fullscreen = ev.Fullscreen
		if !ev.Fullscreen && m.cfg.enabled(FullscreenExit) {
			m.recordLocked(FullscreenExit, "left fullscreen")
			if m.phase == PhaseMonitoring {
				m.scheduleFullscreenRetryLocked()
			}
		}

	case EventContextMenu:
		if m.cfg.enabled(RightClick) {
			m.recordLocked(RightClick, "context menu opened")
		}

	case EventKeyDown:
		if combo, blocked := blockedShortcut(ev); blocked && m.cfg.enabled(KeyboardShortcut) {
			m.recordLocked(KeyboardShortcut, combo)
		}

	case EventClipboard:
		if m.cfg.enabled(CopyPaste) {
			m.recordLocked(CopyPaste, ev.Action)
		}

	case EventResize:
		if m.cfg.enabled(WindowResize) {
			m.handleResizeLocked(ev.Width, ev.Height)
		}
	}
}

// RecordViolation appends a violation directly, bypassing signal
// classification. A no-op once terminated.
func (m *Monitor) RecordViolation(t ViolationType, details string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordLocked(t, details)
}

// OnViolation registers an observer invoked synchronously for every
// recorded violation, in registration order.
func (m *Monitor) OnViolation(fn ViolationFunc) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	m.violationSubs = append(m.violationSubs, violationSub{id: id, fn: fn})

	return &Subscription{ID: id, cancel: func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.violationSubs {
			if s.id == id {
				m.violationSubs = append(m.violationSubs[:i], m.violationSubs[i+1:]...)
				return
			}
		}
	}}
}

// OnTermination registers an observer invoked once with the full violation
// log when the session terminates.
func (m *Monitor) OnTermination(fn TerminationFunc) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	m.terminationSubs = append(m.terminationSubs, terminationSub{id: id, fn: fn})

	return &Subscription{ID: id, cancel: func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.terminationSubs {
			if s.id == id {
				m.terminationSubs = append(m.terminationSubs[:i], m.terminationSubs[i+1:]...)
				return
			}
		}
	}}
}

// State returns an on-demand snapshot.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[ViolationType]int, len(m.counts))
	total := 0
	for t, n := range m.counts {
		counts[t] = n
		total += n
	}

	return State{
		Monitoring: m.phase == PhaseMonitoring,
		Fullscreen: m.fullscreen,
		Counts:     counts,
		Total:      total,
		Level:      m.level,
		Terminated: m.phase == PhaseTerminated,
	}
}

// Violations returns a copy of the ordered violation log.
func (m *Monitor) Violations() []Violation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Violation(nil), m.violations...)
}

// Stop transitions Monitoring → Idle, unregisters the watchers, cancels the
// devtools poll and any pending fullscreen retry, and best-effort exits
// fullscreen. Idempotent and safe from any state; a terminated monitor
// stays terminated.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseMonitoring {
		m.phase = PhaseIdle
	}
	m.teardownLocked()
}

// ClearViolations resets the log, counts, warning level and the terminated
// latch to initial values, even while terminated. It does not restart
// monitoring.
func (m *Monitor) ClearViolations() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.violations = nil
	m.counts = make(map[ViolationType]int)
	m.level = WarningNone
	if m.phase == PhaseTerminated {
		m.phase = PhaseIdle
	}
}

// --- internals (all called with m.mu held) ---

func (m *Monitor) recordLocked(t ViolationType, details string) {
	if m.phase == PhaseTerminated {
		return
	}

	v := Violation{
		ID:        m.newID(),
		Type:      t,
		Timestamp: m.now(),
		Details:   details,
		Severity:  t.Severity(),
	}
	m.violations = append(m.violations, v)
	m.counts[t]++

	total := len(m.violations)
	m.level = m.cfg.level(total)

	log.Info("envmon: violation",
		"type", t, "severity", v.Severity, "total", total, "level", m.level)

	for _, s := range m.violationSubs {
		s.fn(v, m.level)
	}

	if total >= m.cfg.TerminationCap || m.counts[t] >= m.cfg.threshold(t) {
		m.terminateLocked()
	}
}

func (m *Monitor) terminateLocked() {
	m.phase = PhaseTerminated

	full := append([]Violation(nil), m.violations...)
	log.Warn("envmon: session terminated", "total", len(full), "level", m.level)

	for _, s := range m.terminationSubs {
		s.fn(full)
	}

	m.teardownLocked()
}

func (m *Monitor) teardownLocked() {
	if m.pollStop != nil {
		close(m.pollStop)
		m.pollStop = nil
	}
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.display != nil && m.fullscreen {
		if err := m.display.ExitFullscreen(); err != nil {
			log.Debug("envmon: fullscreen exit failed", "err", err)
		}
	}
}

func (m *Monitor) handleResizeLocked(w, h int) {
	dw := abs(w - m.baseW)
	dh := abs(h - m.baseH)

	if dw <= m.cfg.ResizeThresholdPx && dh <= m.cfg.ResizeThresholdPx {
		return
	}

	m.recordLocked(WindowResize,
		fmt.Sprintf("%dx%d → %dx%d", m.baseW, m.baseH, w, h))

	// Reset the baseline so one physical resize fires exactly once.
	m.baseW, m.baseH = w, h
}

// scheduleFullscreenRetryLocked arms the single delayed best-effort
// re-request after a fullscreen exit. The browser may refuse re-entry
// without a fresh user gesture; that is expected.
func (m *Monitor) scheduleFullscreenRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
	}
	m.retry = m.afterFunc(m.cfg.FullscreenRetryDelay, m.retryFullscreen)
}

func (m *Monitor) retryFullscreen() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseMonitoring || m.fullscreen || m.display == nil {
		return
	}
	if err := m.display.RequestFullscreen(); err != nil {
		log.Warn("envmon: fullscreen re-request failed", "err", err)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
