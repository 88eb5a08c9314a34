// Package facemesh provides access to facial-landmark inference backends.
//
// The engine never runs landmark inference itself: a Provider wraps an
// external service that takes a JPEG frame and returns zero or more
// detected faces, each a full landmark mesh. Client is the HTTP provider;
// Feed accepts meshes pushed by clients that run inference locally (e.g. a
// browser); Mock serves tests.
package facemesh

import (
	"context"

	"github.com/proctorwatch/go-proctor/pkg/landmark"
)

// Provider is the inference boundary.
type Provider interface {
	// Detect returns the faces found in one JPEG frame. Zero faces and
	// multiple faces are valid results.
	Detect(ctx context.Context, jpeg []byte) ([]landmark.Face, error)

	// Health checks backend connectivity. A failure at startup is fatal to
	// detection and must be surfaced to the caller.
	Health(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CaptureFunc returns the latest JPEG frame from whatever owns the camera.
type CaptureFunc func() ([]byte, error)

// Source pairs a Provider with a frame capture hook so it can drive a
// frame pump (it satisfies vision.FrameSource).
type Source struct {
	provider Provider
	capture  CaptureFunc
}

// NewSource creates a pull-based frame source.
func NewSource(p Provider, capture CaptureFunc) *Source {
	return &Source{provider: p, capture: capture}
}

// NextFaces captures a frame and runs detection on it.
func (s *Source) NextFaces(ctx context.Context) ([]landmark.Face, error) {
	jpeg, err := s.capture()
	if err != nil {
		return nil, WrapError("capture", err)
	}
	return s.provider.Detect(ctx, jpeg)
}
