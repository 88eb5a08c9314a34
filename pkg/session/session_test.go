package session

import (
	"testing"

	"gocv.io/x/gocv"

	"github.com/proctorwatch/go-proctor/pkg/envmon"
	"github.com/proctorwatch/go-proctor/pkg/vision"
)

func newTestManager(t *testing.T) (*Manager, *Session) {
	t.Helper()
	m := NewManager()
	s, err := m.Create(vision.DefaultConfig(), envmon.DefaultConfig())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return m, s
}

func TestManagerLifecycle(t *testing.T) {
	m, s := newTestManager(t)

	if s.ID == "" {
		t.Error("session has no ID")
	}
	if s.Analyzer == nil || s.Monitor == nil || s.Feed == nil {
		t.Fatal("session missing components")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}

	got, ok := m.Get(s.ID)
	if !ok || got != s {
		t.Error("Get did not return the created session")
	}
	if _, ok := m.Get("nope"); ok {
		t.Error("Get returned a session for an unknown ID")
	}

	m.Remove(s.ID)
	if _, ok := m.Get(s.ID); ok {
		t.Error("session still present after Remove")
	}
	if m.Len() != 0 {
		t.Errorf("Len() after Remove = %d, want 0", m.Len())
	}

	// Removing twice is harmless.
	m.Remove(s.ID)
}

func TestManagerSessionsAreIndependent(t *testing.T) {
	m := NewManager()
	a, err := m.Create(vision.DefaultConfig(), envmon.DefaultConfig())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := m.Create(vision.DefaultConfig(), envmon.DefaultConfig())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if a.ID == b.ID {
		t.Fatal("two sessions share an ID")
	}

	a.Monitor.RecordViolation(envmon.TabSwitch, "a only")

	if got := a.Monitor.State().Total; got != 1 {
		t.Fatalf("session a total = %d, want 1", got)
	}
	if got := b.Monitor.State().Total; got != 0 {
		t.Errorf("violation leaked across sessions: %d", got)
	}
}

func TestManagerClose(t *testing.T) {
	m := NewManager()
	for i := 0; i < 3; i++ {
		if _, err := m.Create(vision.DefaultConfig(), envmon.DefaultConfig()); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	m.Close()
	if m.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", m.Len())
	}

	// The manager stays usable.
	if _, err := m.Create(vision.DefaultConfig(), envmon.DefaultConfig()); err != nil {
		t.Fatalf("Create after Close: %v", err)
	}
}

func TestCaptureStill(t *testing.T) {
	_, s := newTestManager(t)

	if err := s.CaptureStill("warning", makeJPEG(t, 800, 480)); err != nil {
		t.Fatalf("CaptureStill: %v", err)
	}

	stills := s.Stills()
	if len(stills) != 1 {
		t.Fatalf("got %d stills, want 1", len(stills))
	}
	if stills[0].Reason != "warning" {
		t.Errorf("reason = %q, want %q", stills[0].Reason, "warning")
	}
	if len(stills[0].JPEG) == 0 {
		t.Error("still has no image data")
	}
	if stills[0].TakenAt.IsZero() {
		t.Error("still has no timestamp")
	}
}

func TestCaptureStillRejectsGarbage(t *testing.T) {
	_, s := newTestManager(t)

	if err := s.CaptureStill("warning", []byte("not a jpeg")); err == nil {
		t.Error("garbage capture did not error")
	}
	if got := len(s.Stills()); got != 0 {
		t.Errorf("garbage capture retained %d stills", got)
	}
}

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	defer img.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out
}
