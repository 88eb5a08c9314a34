package envmon

import "time"

// WarningThresholds maps total violation counts to warning levels: the
// level is high at or above High, medium at or above Medium, low at or
// above Low, otherwise none.
type WarningThresholds struct {
	Low    int
	Medium int
	High   int
}

// Config holds the tunable parameters for the environment monitor.
type Config struct {
	// WarningThresholds drives the 4-level warning from the total count.
	WarningThresholds WarningThresholds

	// TerminationCap terminates the session when the total count reaches it.
	TerminationCap int

	// TypeThresholds overrides per-type termination thresholds. Types not
	// present fall back to their DefaultThreshold.
	TypeThresholds map[ViolationType]int

	// Disabled turns off classification of individual violation types.
	Disabled map[ViolationType]bool

	// ResizeThresholdPx is the per-axis delta from the last reported window
	// size that counts as a resize violation.
	ResizeThresholdPx int

	// DevtoolsGapPx is the outer/inner window dimension gap that the polled
	// devtools heuristic treats as an open inspector.
	DevtoolsGapPx int

	// DevtoolsPollInterval is how often the devtools heuristic runs.
	// Zero disables the poll.
	DevtoolsPollInterval time.Duration

	// FullscreenRetryDelay is how long after a fullscreen exit the monitor
	// waits before its single best-effort re-request.
	FullscreenRetryDelay time.Duration
}

// DefaultConfig returns the recommended monitor configuration.
func DefaultConfig() Config {
	return Config{
		WarningThresholds:    WarningThresholds{Low: 2, Medium: 5, High: 8},
		TerminationCap:       10,
		ResizeThresholdPx:    50,
		DevtoolsGapPx:        160,
		DevtoolsPollInterval: time.Second,
		FullscreenRetryDelay: time.Second,
	}
}

// threshold resolves the termination threshold for a type.
func (c Config) threshold(t ViolationType) int {
	if v, ok := c.TypeThresholds[t]; ok {
		return v
	}
	return t.DefaultThreshold()
}

// enabled reports whether a violation type should be classified.
func (c Config) enabled(t ViolationType) bool {
	return !c.Disabled[t]
}

// level maps a total violation count to a warning level.
func (c Config) level(total int) WarningLevel {
	switch {
	case total >= c.WarningThresholds.High:
		return WarningHigh
	case total >= c.WarningThresholds.Medium:
		return WarningMedium
	case total >= c.WarningThresholds.Low:
		return WarningLow
	default:
		return WarningNone
	}
}
