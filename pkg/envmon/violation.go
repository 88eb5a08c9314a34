// Package envmon watches browser/OS-level signals for attempts to leave
// the proctored surface. Discrete events (focus, visibility, fullscreen,
// keyboard, clipboard, resize) plus one polled devtools heuristic are
// classified into typed violations, accumulated into per-type counts, and
// escalated through a 4-level warning up to an idempotent termination.
package envmon

import (
	"time"
)

// Severity grades a single violation.
type Severity string

// Severity levels.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ViolationType identifies one of the eight infraction kinds.
type ViolationType string

// Violation types.
const (
	TabSwitch        ViolationType = "TAB_SWITCH"
	WindowBlur       ViolationType = "WINDOW_BLUR"
	FullscreenExit   ViolationType = "FULLSCREEN_EXIT"
	RightClick       ViolationType = "RIGHT_CLICK"
	DevTools         ViolationType = "DEV_TOOLS"
	CopyPaste        ViolationType = "COPY_PASTE"
	WindowResize     ViolationType = "WINDOW_RESIZE"
	KeyboardShortcut ViolationType = "KEYBOARD_SHORTCUT"
)

// Types lists every violation type in a stable order.
var Types = []ViolationType{
	TabSwitch,
	WindowBlur,
	FullscreenExit,
	RightClick,
	DevTools,
	CopyPaste,
	WindowResize,
	KeyboardShortcut,
}

// Severity returns the severity grade for a violation type.
func (t ViolationType) Severity() Severity {
	switch t {
	case DevTools:
		return SeverityHigh
	case TabSwitch, FullscreenExit:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DefaultThreshold returns the per-type count that terminates a session.
func (t ViolationType) DefaultThreshold() int {
	switch t {
	case DevTools:
		return 1
	case FullscreenExit:
		return 2
	case RightClick, CopyPaste:
		return 5
	default: // TAB_SWITCH, WINDOW_BLUR, WINDOW_RESIZE, KEYBOARD_SHORTCUT
		return 3
	}
}

// Violation is a discrete environment-integrity infraction. Immutable once
// created; appended to the session's ordered log.
type Violation struct {
	ID        string        `json:"id"`
	Type      ViolationType `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Details   string        `json:"details,omitempty"`
	Severity  Severity      `json:"severity"`
}

// WarningLevel is the monitor's 4-level escalation signal.
type WarningLevel string

// Warning levels, lowest to highest.
const (
	WarningNone   WarningLevel = "none"
	WarningLow    WarningLevel = "low"
	WarningMedium WarningLevel = "medium"
	WarningHigh   WarningLevel = "high"
)
