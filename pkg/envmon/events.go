package envmon

import (
	"fmt"
	"strings"
)

// EventKind names a raw browser/OS signal.
type EventKind string

// Signal kinds delivered by the collaborator (browser) side.
const (
	EventVisibility  EventKind = "visibility"
	EventBlur        EventKind = "blur"
	EventFullscreen  EventKind = "fullscreen"
	EventContextMenu EventKind = "contextmenu"
	EventKeyDown     EventKind = "keydown"
	EventClipboard   EventKind = "clipboard"
	EventResize      EventKind = "resize"
)

// Event is one discrete signal from the proctored surface. Only the fields
// relevant to its Kind are set.
type Event struct {
	Kind EventKind `json:"kind"`

	// visibility
	Visible bool `json:"visible,omitempty"`

	// fullscreen
	Fullscreen bool `json:"fullscreen,omitempty"`

	// keydown
	Key   string `json:"key,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Meta  bool   `json:"meta,omitempty"`

	// clipboard: "copy", "cut" or "paste"
	Action string `json:"action,omitempty"`

	// resize
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Display supplies window metrics and fullscreen control for the proctored
// surface. In a browser deployment this is a proxy that relays commands
// over the signal channel and reports the last-seen metrics.
type Display interface {
	// InnerSize returns the viewport dimensions in pixels.
	InnerSize() (w, h int)

	// OuterSize returns the window dimensions in pixels.
	OuterSize() (w, h int)

	// IsFullscreen reports the current fullscreen state.
	IsFullscreen() bool

	// RequestFullscreen asks the surface to enter fullscreen. Best-effort:
	// the browser may refuse without a fresh user gesture.
	RequestFullscreen() error

	// ExitFullscreen asks the surface to leave fullscreen.
	ExitFullscreen() error
}

// blockedShortcut classifies a keydown into a flagged key combination.
// Returns the combo description and true when the combination is one the
// proctored surface must not use.
func blockedShortcut(ev Event) (string, bool) {
	key := strings.ToLower(ev.Key)

	switch {
	case key == "f12":
		return "F12", true
	case ev.Ctrl && ev.Shift && (key == "i" || key == "j" || key == "c"):
		return fmt.Sprintf("Ctrl+Shift+%s", strings.ToUpper(key)), true
	case (ev.Ctrl || ev.Meta) && (key == "u" || key == "p" || key == "s"):
		return comboPrefix(ev) + strings.ToUpper(key), true
	case ev.Alt && key == "tab":
		return "Alt+Tab", true
	case key == "printscreen":
		return "PrintScreen", true
	default:
		return "", false
	}
}

func comboPrefix(ev Event) string {
	if ev.Meta {
		return "Meta+"
	}
	return "Ctrl+"
}
