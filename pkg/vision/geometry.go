package vision

import (
	"math"

	"github.com/proctorwatch/go-proctor/pkg/landmark"
)

// boxEpsilon floors degenerate eye-box dimensions so normalization never
// divides by zero.
const boxEpsilon = 1e-6

// noseYawScale maps the normalized nose-tip offset (roughly -0.5..0.5 of
// the inter-eye distance) onto degrees.
const noseYawScale = 90.0

// Direction is a coarse horizontal head/gaze direction.
type Direction string

// Head directions.
const (
	DirectionNone  Direction = ""
	DirectionLeft  Direction = "LEFT"
	DirectionRight Direction = "RIGHT"
)

// Gaze labels produced by GazeOutOfBounds. The webcam feed is assumed
// mirrored, so a delta below the calibrated center maps to the subject's
// RIGHT (horizontal) and UP (vertical). This convention is fixed here and
// covered by tests; flip these four constants if a deployment uses an
// unmirrored feed.
const (
	GazeLabelNegativeH = "RIGHT"
	GazeLabelPositiveH = "LEFT"
	GazeLabelNegativeV = "UP"
	GazeLabelPositiveV = "DOWN"
)

// GazeSample is the normalized iris position within each eye's bounding
// box, plus the per-axis average across both eyes.
type GazeSample struct {
	LeftH  float64 `json:"left_h"`
	RightH float64 `json:"right_h"`
	LeftV  float64 `json:"left_v"`
	RightV float64 `json:"right_v"`
	AvgH   float64 `json:"avg_h"`
	AvgV   float64 `json:"avg_v"`
}

// HeadPose is the estimated head yaw relative to the calibrated baseline.
type HeadPose struct {
	Moving    bool      `json:"moving"`
	Direction Direction `json:"direction,omitempty"`
	Angle     float64   `json:"angle_degrees"`
}

// eyeBox returns the bounding box of one eye from its four extreme points.
func eyeBox(f landmark.Face, outer, inner, top, bottom int) (minX, minY, w, h float64) {
	minX = math.Min(f[outer].X, f[inner].X)
	maxX := math.Max(f[outer].X, f[inner].X)
	minY = math.Min(f[top].Y, f[bottom].Y)
	maxY := math.Max(f[top].Y, f[bottom].Y)

	w = math.Max(maxX-minX, boxEpsilon)
	h = math.Max(maxY-minY, boxEpsilon)
	return minX, minY, w, h
}

// ComputeGaze locates each iris center within its eye's bounding box,
// normalized by the box dimensions, and averages the two eyes.
func ComputeGaze(f landmark.Face) GazeSample {
	rx, ry, rw, rh := eyeBox(f, landmark.RightEyeOuter, landmark.RightEyeInner, landmark.RightEyeTop, landmark.RightEyeBottom)
	lx, ly, lw, lh := eyeBox(f, landmark.LeftEyeOuter, landmark.LeftEyeInner, landmark.LeftEyeTop, landmark.LeftEyeBottom)

	rightIris := f[landmark.RightIrisCenter]
	leftIris := f[landmark.LeftIrisCenter]

	s := GazeSample{
		RightH: (rightIris.X - rx) / rw,
		RightV: (rightIris.Y - ry) / rh,
		LeftH:  (leftIris.X - lx) / lw,
		LeftV:  (leftIris.Y - ly) / lh,
	}
	s.AvgH = (s.LeftH + s.RightH) / 2
	s.AvgV = (s.LeftV + s.RightV) / 2
	return s
}

// ComputeHeadPose blends two yaw estimates: the angle of the line between
// the outer eye corners, and the nose-tip offset from the eye midpoint
// normalized by the inter-eye distance and scaled to degrees. Uncalibrated
// input yields the angle with Moving=false.
func ComputeHeadPose(f landmark.Face, cal *Calibration) HeadPose {
	right := f[landmark.RightEyeOuter]
	left := f[landmark.LeftEyeOuter]
	nose := f[landmark.NoseTip]

	eyeAngle := math.Atan2(left.Y-right.Y, left.X-right.X) * 180 / math.Pi

	midX := (left.X + right.X) / 2
	interEye := math.Max(math.Abs(left.X-right.X), boxEpsilon)
	noseYaw := (nose.X - midX) / interEye * noseYawScale

	yaw := (eyeAngle + noseYaw) / 2

	pose := HeadPose{Angle: yaw}
	if cal == nil || !cal.Calibrated {
		return pose
	}

	diff := yaw - cal.BaselineHeadYaw
	if math.Abs(diff) > cal.ToleranceHeadYaw {
		pose.Moving = true
		// Mirrored feed: yaw below baseline means the head turned to the
		// subject's right.
		if diff < 0 {
			pose.Direction = DirectionRight
		} else {
			pose.Direction = DirectionLeft
		}
	}
	return pose
}

// ComputeEyeOpening returns the average vertical eyelid gap across both
// eyes.
func ComputeEyeOpening(f landmark.Face) float64 {
	right := math.Abs(f[landmark.RightEyeTop].Y - f[landmark.RightEyeBottom].Y)
	left := math.Abs(f[landmark.LeftEyeTop].Y - f[landmark.LeftEyeBottom].Y)
	return (right + left) / 2
}

// LookingUp reports whether the current eye opening exceeds the calibrated
// baseline by more than the tolerance ratio. Widened eyelids correlate
// with an upward gaze on typical webcam angles; this is a heuristic, not a
// physiological measurement. Always false before calibration.
func LookingUp(f landmark.Face, cal *Calibration) bool {
	if cal == nil || !cal.Calibrated || cal.BaselineEyeOpening <= boxEpsilon {
		return false
	}
	ratio := ComputeEyeOpening(f) / cal.BaselineEyeOpening
	return ratio > 1+cal.ToleranceEyeOpening
}

// GazeOutOfBounds labels the gaze directions in which the sample exceeds
// the calibrated tolerances. When both axes exceed tolerance the single
// diagonal label (e.g. "RIGHT-DOWN") takes priority over two per-axis
// labels. Always nil before calibration.
func GazeOutOfBounds(g GazeSample, cal *Calibration) []string {
	if cal == nil || !cal.Calibrated {
		return nil
	}

	dH := g.AvgH - cal.CenterGazeH
	dV := g.AvgV - cal.CenterGazeV

	var horizontal, vertical string
	if dH < -cal.ToleranceH {
		horizontal = GazeLabelNegativeH
	} else if dH > cal.ToleranceH {
		horizontal = GazeLabelPositiveH
	}
	if dV < -cal.ToleranceV {
		vertical = GazeLabelNegativeV
	} else if dV > cal.ToleranceV {
		vertical = GazeLabelPositiveV
	}

	switch {
	case horizontal != "" && vertical != "":
		return []string{horizontal + "-" + vertical}
	case horizontal != "":
		return []string{horizontal}
	case vertical != "":
		return []string{vertical}
	default:
		return nil
	}
}
