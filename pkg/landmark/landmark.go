// Package landmark defines the facial landmark types shared by the
// detectors. A face is an ordered, fixed-size sequence of points whose
// indices follow the MediaPipe FaceMesh convention (refined mesh with
// iris points), so any inference backend emitting that layout plugs in
// directly.
package landmark

import (
	"errors"
	"fmt"
	"math"
)

// MeshSize is the number of points in a refined face mesh (468 contour
// points plus 10 iris points).
const MeshSize = 478

// Semantic indices into a Face. "Left" and "right" are the subject's
// sides; on a typical mirrored webcam feed the subject's right eye
// appears on the left of the image.
const (
	NoseTip = 1
	Chin    = 152

	RightEyeOuter  = 33
	RightEyeInner  = 133
	RightEyeTop    = 159
	RightEyeBottom = 145

	LeftEyeInner  = 362
	LeftEyeOuter  = 263
	LeftEyeTop    = 386
	LeftEyeBottom = 374

	RightIrisCenter = 468
	LeftIrisCenter  = 473
)

// Point is a single landmark coordinate. X and Y are normalized image
// coordinates (0-1); Z is relative depth in the same scale.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Face is an ordered, fixed-size landmark sequence for one detected face.
type Face []Point

// Errors returned by Validate.
var (
	ErrEmptyFace = errors.New("landmark: empty face")
	ErrShortFace = errors.New("landmark: face has too few points")
)

// Validate checks that the face carries a full, finite mesh.
func (f Face) Validate() error {
	if len(f) == 0 {
		return ErrEmptyFace
	}
	if len(f) < MeshSize {
		return fmt.Errorf("%w: got %d, want %d", ErrShortFace, len(f), MeshSize)
	}
	for i, p := range f {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return fmt.Errorf("landmark: point %d is not finite", i)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
