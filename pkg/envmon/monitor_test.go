package envmon

import (
	"errors"
	"testing"
	"time"
)

// fakeDisplay is a scriptable Display. Requesting fullscreen succeeds and
// flips the reported state, like a granted browser request.
type fakeDisplay struct {
	innerW, innerH int
	outerW, outerH int
	fullscreen     bool

	requests int
	exits    int
}

func (d *fakeDisplay) InnerSize() (int, int) { return d.innerW, d.innerH }
func (d *fakeDisplay) OuterSize() (int, int) { return d.outerW, d.outerH }
func (d *fakeDisplay) IsFullscreen() bool    { return d.fullscreen }

func (d *fakeDisplay) RequestFullscreen() error {
	d.requests++
	d.fullscreen = true
	return nil
}

func (d *fakeDisplay) ExitFullscreen() error {
	d.exits++
	d.fullscreen = false
	return nil
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{innerW: 1920, innerH: 1080, outerW: 1920, outerH: 1160}
}

// testConfig disables the background poll so tests drive everything
// synchronously.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DevtoolsPollInterval = 0
	return cfg
}

func startedMonitor(t *testing.T, cfg Config) (*Monitor, *fakeDisplay) {
	t.Helper()
	m := NewMonitor(cfg)
	d := newFakeDisplay()
	if err := m.Start(d); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return m, d
}

func hidden() Event  { return Event{Kind: EventVisibility, Visible: false} }
func visible() Event { return Event{Kind: EventVisibility, Visible: true} }

func TestStart(t *testing.T) {
	m, d := startedMonitor(t, testConfig())

	state := m.State()
	if !state.Monitoring {
		t.Error("state not monitoring after Start")
	}
	if !state.Fullscreen {
		t.Error("fullscreen not captured from display")
	}
	if state.Total != 0 || state.Level != WarningNone {
		t.Errorf("fresh state = total %d level %q", state.Total, state.Level)
	}
	if d.requests != 1 {
		t.Errorf("fullscreen requests = %d, want 1", d.requests)
	}

	// Starting again is a no-op.
	if err := m.Start(d); err != nil {
		t.Errorf("second Start: %v", err)
	}
	if d.requests != 1 {
		t.Errorf("second Start re-requested fullscreen: %d", d.requests)
	}
}

func TestEventsIgnoredWhenIdle(t *testing.T) {
	m := NewMonitor(testConfig())
	m.HandleEvent(hidden())
	m.HandleEvent(Event{Kind: EventBlur})

	if got := m.State().Total; got != 0 {
		t.Errorf("idle monitor recorded %d violations", got)
	}
}

func TestTabSwitchTermination(t *testing.T) {
	m, _ := startedMonitor(t, testConfig())

	var terminated [][]Violation
	m.OnTermination(func(vs []Violation) {
		terminated = append(terminated, vs)
	})

	// TAB_SWITCH terminates on the third occurrence.
	for i := 0; i < 3; i++ {
		m.HandleEvent(hidden())
		m.HandleEvent(visible())
	}

	state := m.State()
	if !state.Terminated {
		t.Fatal("not terminated after three tab switches")
	}
	if state.Monitoring {
		t.Error("still monitoring after termination")
	}
	if state.Total != 3 {
		t.Errorf("total = %d, want 3", state.Total)
	}
	if state.Counts[TabSwitch] != 3 {
		t.Errorf("tab switch count = %d, want 3", state.Counts[TabSwitch])
	}
	if state.Level != WarningLow {
		t.Errorf("level = %q, want %q", state.Level, WarningLow)
	}

	if len(terminated) != 1 {
		t.Fatalf("termination callback fired %d times, want 1", len(terminated))
	}
	if len(terminated[0]) != 3 {
		t.Errorf("termination log has %d violations, want 3", len(terminated[0]))
	}

	// Everything after termination is a no-op.
	m.HandleEvent(hidden())
	m.RecordViolation(WindowBlur, "late")
	if got := m.State().Total; got != 3 {
		t.Errorf("total after termination = %d, want 3", got)
	}

	if err := m.Start(newFakeDisplay()); !errors.Is(err, ErrTerminated) {
		t.Errorf("Start after termination = %v, want ErrTerminated", err)
	}
}

func TestTerminationCap(t *testing.T) {
	m, _ := startedMonitor(t, testConfig())

	fired := 0
	m.OnTermination(func([]Violation) { fired++ })

	// Stay under every per-type threshold; the tenth violation hits the
	// total cap.
	script := []ViolationType{
		RightClick, RightClick, RightClick, RightClick,
		CopyPaste, CopyPaste, CopyPaste, CopyPaste,
		TabSwitch, TabSwitch,
	}
	for _, vt := range script {
		m.RecordViolation(vt, "scripted")
	}

	state := m.State()
	if !state.Terminated {
		t.Fatal("not terminated at the total cap")
	}
	if state.Total != 10 {
		t.Errorf("total = %d, want 10", state.Total)
	}
	if state.Level != WarningHigh {
		t.Errorf("level = %q, want %q", state.Level, WarningHigh)
	}
	if fired != 1 {
		t.Errorf("termination callback fired %d times, want 1", fired)
	}
}

func TestWarningLevelProgression(t *testing.T) {
	cfg := testConfig()
	cfg.TerminationCap = 100
	cfg.TypeThresholds = map[ViolationType]int{RightClick: 100}
	m, _ := startedMonitor(t, cfg)

	wants := map[int]WarningLevel{
		1: WarningNone,
		2: WarningLow,
		4: WarningLow,
		5: WarningMedium,
		7: WarningMedium,
		8: WarningHigh,
	}

	for total := 1; total <= 8; total++ {
		m.RecordViolation(RightClick, "scripted")
		want, check := wants[total]
		if !check {
			continue
		}
		if got := m.State().Level; got != want {
			t.Errorf("level after %d violations = %q, want %q", total, got, want)
		}
	}
}

func TestResizeBaseline(t *testing.T) {
	m, _ := startedMonitor(t, testConfig())

	resize := func(w, h int) {
		m.HandleEvent(Event{Kind: EventResize, Width: w, Height: h})
	}

	// Within threshold on both axes: no violation, baseline keeps.
	resize(1900, 1060)
	if got := m.State().Counts[WindowResize]; got != 0 {
		t.Fatalf("small resize recorded %d violations", got)
	}

	// Past threshold on one axis, measured from the original baseline.
	resize(1800, 1080)
	if got := m.State().Counts[WindowResize]; got != 1 {
		t.Fatalf("large resize count = %d, want 1", got)
	}

	// Baseline moved to the last reported size, so going back fires again.
	resize(1920, 1080)
	if got := m.State().Counts[WindowResize]; got != 2 {
		t.Errorf("return resize count = %d, want 2", got)
	}

	// And small wiggles around the new baseline stay quiet.
	resize(1930, 1090)
	if got := m.State().Counts[WindowResize]; got != 2 {
		t.Errorf("wiggle after baseline move recorded a violation")
	}
}

func TestFullscreenExitSchedulesRetry(t *testing.T) {
	m := NewMonitor(testConfig())

	var retryFn func()
	var retryDelay time.Duration
	m.afterFunc = func(d time.Duration, fn func()) *time.Timer {
		retryDelay = d
		retryFn = fn
		return time.NewTimer(time.Hour)
	}

	d := newFakeDisplay()
	if err := m.Start(d); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.requests != 1 {
		t.Fatalf("requests after Start = %d, want 1", d.requests)
	}

	m.HandleEvent(Event{Kind: EventFullscreen, Fullscreen: false})
	if got := m.State().Counts[FullscreenExit]; got != 1 {
		t.Fatalf("fullscreen exit count = %d, want 1", got)
	}
	if retryFn == nil {
		t.Fatal("no retry scheduled")
	}
	if retryDelay != m.cfg.FullscreenRetryDelay {
		t.Errorf("retry delay = %v, want %v", retryDelay, m.cfg.FullscreenRetryDelay)
	}

	// The fired retry re-requests fullscreen once.
	d.fullscreen = false
	retryFn()
	if d.requests != 2 {
		t.Errorf("requests after retry = %d, want 2", d.requests)
	}

	// A retry firing while already fullscreen again is a no-op.
	m.HandleEvent(Event{Kind: EventFullscreen, Fullscreen: true})
	retryFn()
	if d.requests != 2 {
		t.Errorf("requests after redundant retry = %d, want 2", d.requests)
	}
}

func TestBlockedShortcuts(t *testing.T) {
	tests := []struct {
		name    string
		ev      Event
		blocked bool
		details string
	}{
		{"f12", Event{Kind: EventKeyDown, Key: "F12"}, true, "F12"},
		{"inspector", Event{Kind: EventKeyDown, Key: "I", Ctrl: true, Shift: true}, true, "Ctrl+Shift+I"},
		{"console", Event{Kind: EventKeyDown, Key: "j", Ctrl: true, Shift: true}, true, "Ctrl+Shift+J"},
		{"view source", Event{Kind: EventKeyDown, Key: "u", Ctrl: true}, true, "Ctrl+U"},
		{"view source mac", Event{Kind: EventKeyDown, Key: "u", Meta: true}, true, "Meta+U"},
		{"print", Event{Kind: EventKeyDown, Key: "p", Ctrl: true}, true, "Ctrl+P"},
		{"save", Event{Kind: EventKeyDown, Key: "s", Meta: true}, true, "Meta+S"},
		{"alt tab", Event{Kind: EventKeyDown, Key: "Tab", Alt: true}, true, "Alt+Tab"},
		{"print screen", Event{Kind: EventKeyDown, Key: "PrintScreen"}, true, "PrintScreen"},
		{"plain key", Event{Kind: EventKeyDown, Key: "a"}, false, ""},
		{"copy shortcut is clipboard's job", Event{Kind: EventKeyDown, Key: "c", Ctrl: true}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := startedMonitor(t, testConfig())
			m.HandleEvent(tt.ev)

			vs := m.Violations()
			if !tt.blocked {
				if len(vs) != 0 {
					t.Fatalf("unblocked key recorded %v", vs)
				}
				return
			}
			if len(vs) != 1 {
				t.Fatalf("recorded %d violations, want 1", len(vs))
			}
			if vs[0].Type != KeyboardShortcut {
				t.Errorf("type = %q, want %q", vs[0].Type, KeyboardShortcut)
			}
			if vs[0].Details != tt.details {
				t.Errorf("details = %q, want %q", vs[0].Details, tt.details)
			}
		})
	}
}

func TestClipboardAndContextMenu(t *testing.T) {
	m, _ := startedMonitor(t, testConfig())

	m.HandleEvent(Event{Kind: EventClipboard, Action: "paste"})
	m.HandleEvent(Event{Kind: EventContextMenu})

	state := m.State()
	if state.Counts[CopyPaste] != 1 || state.Counts[RightClick] != 1 {
		t.Errorf("counts = %v", state.Counts)
	}

	vs := m.Violations()
	if len(vs) != 2 || vs[0].Details != "paste" {
		t.Errorf("violations = %v", vs)
	}
}

func TestDisabledTypes(t *testing.T) {
	cfg := testConfig()
	cfg.Disabled = map[ViolationType]bool{TabSwitch: true}
	m, _ := startedMonitor(t, cfg)

	m.HandleEvent(hidden())
	m.HandleEvent(Event{Kind: EventBlur})

	state := m.State()
	if state.Counts[TabSwitch] != 0 {
		t.Error("disabled type was recorded")
	}
	if state.Counts[WindowBlur] != 1 {
		t.Error("enabled type was not recorded")
	}
}

func TestStop(t *testing.T) {
	m, d := startedMonitor(t, testConfig())

	m.HandleEvent(hidden())
	m.Stop()

	state := m.State()
	if state.Monitoring {
		t.Error("still monitoring after Stop")
	}
	if state.Terminated {
		t.Error("Stop marked the session terminated")
	}
	if state.Total != 1 {
		t.Errorf("Stop cleared the violation log: total %d", state.Total)
	}
	if d.exits == 0 {
		t.Error("Stop did not exit fullscreen")
	}

	// Stop again from idle: no panic, no state change.
	m.Stop()
	if m.State().Monitoring {
		t.Error("second Stop changed phase")
	}

	// Events after Stop are ignored.
	m.HandleEvent(hidden())
	if got := m.State().Total; got != 1 {
		t.Errorf("stopped monitor recorded a violation: total %d", got)
	}
}

func TestClearViolations(t *testing.T) {
	m, _ := startedMonitor(t, testConfig())

	for i := 0; i < 3; i++ {
		m.HandleEvent(hidden())
	}
	if !m.State().Terminated {
		t.Fatal("setup did not terminate")
	}

	m.ClearViolations()

	state := m.State()
	if state.Terminated {
		t.Error("still terminated after ClearViolations")
	}
	if state.Monitoring {
		t.Error("ClearViolations restarted monitoring")
	}
	if state.Total != 0 || state.Level != WarningNone {
		t.Errorf("state not reset: total %d level %q", state.Total, state.Level)
	}
	if len(m.Violations()) != 0 {
		t.Error("violation log not cleared")
	}

	// The monitor is reusable after a clear.
	if err := m.Start(newFakeDisplay()); err != nil {
		t.Fatalf("Start after clear: %v", err)
	}
	m.HandleEvent(hidden())
	if got := m.State().Total; got != 1 {
		t.Errorf("restarted monitor total = %d, want 1", got)
	}
}

func TestSubscriptionCancel(t *testing.T) {
	m, _ := startedMonitor(t, testConfig())

	var first, second int
	sub := m.OnViolation(func(Violation, WarningLevel) { first++ })
	m.OnViolation(func(Violation, WarningLevel) { second++ })

	m.HandleEvent(hidden())
	if first != 1 || second != 1 {
		t.Fatalf("fan-out = %d/%d, want 1/1", first, second)
	}

	sub.Cancel()
	sub.Cancel() // twice is fine

	m.HandleEvent(hidden())
	if first != 1 {
		t.Errorf("canceled observer still invoked: %d", first)
	}
	if second != 2 {
		t.Errorf("remaining observer = %d, want 2", second)
	}

	term := m.OnTermination(func([]Violation) {
		t.Error("canceled termination observer invoked")
	})
	term.Cancel()
	m.HandleEvent(hidden()) // third tab switch terminates
	if !m.State().Terminated {
		t.Fatal("setup did not terminate")
	}
}

func TestViolationObserverReceivesLevel(t *testing.T) {
	m, _ := startedMonitor(t, testConfig())

	var levels []WarningLevel
	m.OnViolation(func(v Violation, level WarningLevel) {
		levels = append(levels, level)
	})

	// Observers run under the monitor's mutex; the level argument carries
	// what State() would report, so fan-out must complete without the
	// observer having to call back in.
	done := make(chan struct{})
	go func() {
		m.RecordViolation(WindowBlur, "first")
		m.RecordViolation(WindowBlur, "second")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RecordViolation blocked during observer fan-out")
	}

	want := []WarningLevel{WarningNone, WarningLow}
	if len(levels) != len(want) {
		t.Fatalf("observed levels = %v, want %v", levels, want)
	}
	for i := range want {
		if levels[i] != want[i] {
			t.Errorf("level %d = %q, want %q", i, levels[i], want[i])
		}
	}
	if got := m.State().Level; got != WarningLow {
		t.Errorf("State().Level = %q, want %q", got, WarningLow)
	}
}

func TestViolationFields(t *testing.T) {
	m, _ := startedMonitor(t, testConfig())

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return at }
	m.newID = func() string { return "fixed-id" }

	m.RecordViolation(DevTools, "window gap 200x0 px")

	vs := m.Violations()
	if len(vs) != 1 {
		t.Fatalf("got %d violations", len(vs))
	}
	v := vs[0]
	if v.ID != "fixed-id" || !v.Timestamp.Equal(at) {
		t.Errorf("identity fields = %q %v", v.ID, v.Timestamp)
	}
	if v.Severity != SeverityHigh {
		t.Errorf("severity = %q, want %q", v.Severity, SeverityHigh)
	}
	if v.Details != "window gap 200x0 px" {
		t.Errorf("details = %q", v.Details)
	}

	// DEV_TOOLS terminates on the first occurrence.
	if !m.State().Terminated {
		t.Error("devtools violation did not terminate")
	}
}
