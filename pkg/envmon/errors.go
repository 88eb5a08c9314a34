package envmon

import "errors"

var (
	// ErrTerminated is returned by Start after the session has been
	// terminated. ClearViolations resets the monitor for reuse.
	ErrTerminated = errors.New("envmon: session terminated")

	// ErrDisplayBusy is returned by a Display when it cannot accept a
	// fullscreen command right now.
	ErrDisplayBusy = errors.New("envmon: display command channel full")
)
