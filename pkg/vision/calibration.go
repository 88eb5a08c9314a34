package vision

import (
	"time"

	"github.com/proctorwatch/go-proctor/pkg/landmark"
)

// Calibration holds the per-session baseline captured from one reference
// frame. All anomaly checks compare against it; it is immutable until the
// caller recalibrates.
type Calibration struct {
	CenterGazeH        float64 `json:"center_gaze_h"`
	CenterGazeV        float64 `json:"center_gaze_v"`
	BaselineEyeOpening float64 `json:"baseline_eye_opening"`
	BaselineHeadYaw    float64 `json:"baseline_head_yaw"`

	ToleranceH          float64 `json:"tolerance_h"`
	ToleranceV          float64 `json:"tolerance_v"`
	ToleranceEyeOpening float64 `json:"tolerance_eye_opening"`
	ToleranceHeadYaw    float64 `json:"tolerance_head_yaw"`

	Calibrated bool      `json:"calibrated"`
	CapturedAt time.Time `json:"captured_at"`

	// ReferenceImage is the optional JPEG captured at calibration time.
	ReferenceImage []byte `json:"-"`
}

// NewCalibration computes a baseline from a single reference face using
// the tolerances in cfg. The face must be a full, finite mesh.
func NewCalibration(face landmark.Face, refImage []byte, cfg Config) (*Calibration, error) {
	if err := face.Validate(); err != nil {
		return nil, &CalibrationError{Err: err}
	}

	gaze := ComputeGaze(face)
	pose := ComputeHeadPose(face, nil)

	return &Calibration{
		CenterGazeH:         gaze.AvgH,
		CenterGazeV:         gaze.AvgV,
		BaselineEyeOpening:  ComputeEyeOpening(face),
		BaselineHeadYaw:     pose.Angle,
		ToleranceH:          cfg.GazeToleranceH,
		ToleranceV:          cfg.GazeToleranceV,
		ToleranceEyeOpening: cfg.EyeOpeningTolerance,
		ToleranceHeadYaw:    cfg.HeadYawTolerance,
		Calibrated:          true,
		CapturedAt:          time.Now(),
		ReferenceImage:      refImage,
	}, nil
}
