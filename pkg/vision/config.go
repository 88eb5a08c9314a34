package vision

import "time"

// Level is the visual detector's 3-level warning.
type Level string

// Warning levels, lowest to highest.
const (
	LevelOK      Level = "ok"
	LevelCaution Level = "caution"
	LevelWarning Level = "warning"
)

// Config holds the tunable parameters for the visual behavior analyzer.
type Config struct {
	// Feature toggles
	TrackGaze          bool // flag out-of-bounds gaze
	TrackHeadPose      bool // flag head turns past tolerance
	TrackEyeOpening    bool // flag the looking-up heuristic
	TrackMultipleFaces bool // flag more than one detected face

	// Calibration tolerances (copied into each Calibration)
	GazeToleranceH      float64 // normalized iris offset, horizontal
	GazeToleranceV      float64 // normalized iris offset, vertical
	EyeOpeningTolerance float64 // ratio above baseline eye opening
	HeadYawTolerance    float64 // degrees from baseline yaw

	// Suspicion counter. The counter grows by SuspicionStep on frames that
	// produced any warning (capped at SuspicionCeiling) and shrinks by
	// SuspicionDecay on clean frames (floored at zero). Decay is the larger
	// step, so the counter forgives faster than it accuses.
	SuspicionStep    int
	SuspicionDecay   int
	SuspicionCeiling int

	// Warning thresholds: the level is "warning" when the counter exceeds
	// WarningThreshold, "caution" when it exceeds CautionThreshold.
	// CautionThreshold must be below WarningThreshold.
	CautionThreshold int
	WarningThreshold int

	// Frame pump
	FrameInterval time.Duration // how often the pump requests a frame
	DetectTimeout time.Duration // per-call bound on the inference request
}

// DefaultConfig returns the recommended analyzer configuration.
func DefaultConfig() Config {
	return Config{
		TrackGaze:          true,
		TrackHeadPose:      true,
		TrackEyeOpening:    true,
		TrackMultipleFaces: true,

		GazeToleranceH:      0.15,
		GazeToleranceV:      0.15,
		EyeOpeningTolerance: 0.30,
		HeadYawTolerance:    12.0,

		SuspicionStep:    1,
		SuspicionDecay:   2,
		SuspicionCeiling: 10,

		CautionThreshold: 3,
		WarningThreshold: 6,

		FrameInterval: 500 * time.Millisecond,
		DetectTimeout: 5 * time.Second,
	}
}
