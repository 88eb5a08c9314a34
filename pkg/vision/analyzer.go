package vision

import (
	"fmt"
	"sync"

	"github.com/proctorwatch/go-proctor/internal/log"
	"github.com/proctorwatch/go-proctor/pkg/landmark"
)

// WarnNoFace is the warning emitted on frames with no detected face.
const WarnNoFace = "No face detected"

// Frame is the ephemeral result of analyzing one video frame.
type Frame struct {
	Gaze      GazeSample `json:"gaze"`
	HeadPose  HeadPose   `json:"head_pose"`
	FaceCount int        `json:"face_count"`
	LookingUp bool       `json:"looking_up"`
	Warnings  []string   `json:"warnings,omitempty"`
	Level     Level      `json:"level"`
}

// Analyzer is the visual behavior detector for one session. It holds the
// calibration baseline and a bounded suspicion counter that steps up on
// anomalous frames and decays on clean ones. Construct one per session;
// all methods are safe for concurrent use.
type Analyzer struct {
	mu        sync.Mutex
	cfg       Config
	cal       *Calibration
	suspicion int
}

// NewAnalyzer validates cfg and returns a fresh analyzer.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if cfg.GazeToleranceH <= 0 || cfg.GazeToleranceV <= 0 ||
		cfg.EyeOpeningTolerance <= 0 || cfg.HeadYawTolerance <= 0 {
		return nil, fmt.Errorf("%w: tolerances must be strictly positive", ErrInvalidConfig)
	}
	if cfg.CautionThreshold >= cfg.WarningThreshold {
		return nil, fmt.Errorf("%w: caution threshold %d must be below warning threshold %d",
			ErrInvalidConfig, cfg.CautionThreshold, cfg.WarningThreshold)
	}
	if cfg.SuspicionStep <= 0 || cfg.SuspicionDecay <= 0 || cfg.SuspicionCeiling <= 0 {
		return nil, fmt.Errorf("%w: suspicion steps must be positive", ErrInvalidConfig)
	}
	return &Analyzer{cfg: cfg}, nil
}

// Calibrate computes and stores a new baseline from one reference face,
// overwriting any prior calibration. The optional refImage is retained on
// the returned Calibration.
func (a *Analyzer) Calibrate(face landmark.Face, refImage []byte) (*Calibration, error) {
	cal, err := NewCalibration(face, refImage, a.cfg)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cal = cal
	a.mu.Unlock()

	log.Debug("vision: calibrated",
		"center_h", cal.CenterGazeH,
		"center_v", cal.CenterGazeV,
		"baseline_yaw", cal.BaselineHeadYaw,
	)

	out := *cal
	return &out, nil
}

// Calibrated reports whether a baseline exists.
func (a *Analyzer) Calibrated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cal != nil && a.cal.Calibrated
}

// Calibration returns a copy of the current baseline, or nil.
func (a *Analyzer) Calibration() *Calibration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cal == nil {
		return nil
	}
	out := *a.cal
	return &out
}

// Suspicion returns the current counter value.
func (a *Analyzer) Suspicion() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.suspicion
}

// Level returns the warning level for the current counter value.
func (a *Analyzer) Level() Level {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.levelLocked()
}

// ProcessFaces analyzes the faces detected in one frame and returns the
// per-frame result. Only the first face is analyzed; additional faces are
// counted and, when enabled, flagged. A frame with no faces returns an
// immediate warning but leaves the suspicion counter untouched.
func (a *Analyzer) ProcessFaces(faces []landmark.Face) Frame {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(faces) == 0 {
		return Frame{
			FaceCount: 0,
			Warnings:  []string{WarnNoFace},
			Level:     LevelWarning,
		}
	}

	frame := Frame{FaceCount: len(faces)}

	face := faces[0]
	if err := face.Validate(); err != nil {
		// Malformed mesh from the backend: skip analysis, keep the counter.
		log.Warn("vision: malformed face mesh", "err", err)
		frame.Level = a.levelLocked()
		return frame
	}

	if a.cfg.TrackMultipleFaces && len(faces) > 1 {
		frame.Warnings = append(frame.Warnings, fmt.Sprintf("Multiple faces detected (%d)", len(faces)))
	}

	frame.Gaze = ComputeGaze(face)
	frame.HeadPose = ComputeHeadPose(face, a.cal)

	// Anomaly checks are all no-ops before calibration.
	if a.cfg.TrackGaze {
		for _, label := range GazeOutOfBounds(frame.Gaze, a.cal) {
			frame.Warnings = append(frame.Warnings, "Looking "+label)
		}
	}
	if a.cfg.TrackHeadPose && frame.HeadPose.Moving {
		frame.Warnings = append(frame.Warnings,
			fmt.Sprintf("Head turned %s (%.1f°)", frame.HeadPose.Direction, frame.HeadPose.Angle))
	}
	if a.cfg.TrackEyeOpening && LookingUp(face, a.cal) {
		frame.LookingUp = true
		frame.Warnings = append(frame.Warnings, "Looking up")
	}

	if len(frame.Warnings) > 0 {
		a.suspicion = min(a.suspicion+a.cfg.SuspicionStep, a.cfg.SuspicionCeiling)
	} else {
		a.suspicion = max(a.suspicion-a.cfg.SuspicionDecay, 0)
	}

	frame.Level = a.levelLocked()
	return frame
}

// Stop resets the suspicion counter. The frame pump observes its own
// context; stopping the analyzer is safe from any state.
func (a *Analyzer) Stop() {
	a.mu.Lock()
	a.suspicion = 0
	a.mu.Unlock()
}

func (a *Analyzer) levelLocked() Level {
	switch {
	case a.suspicion > a.cfg.WarningThreshold:
		return LevelWarning
	case a.suspicion > a.cfg.CautionThreshold:
		return LevelCaution
	default:
		return LevelOK
	}
}
