package facemesh

import (
	"context"
	"sync"
	"time"

	"github.com/proctorwatch/go-proctor/pkg/landmark"
)

// Feed is a push-based frame source for clients that run landmark inference
// themselves and stream meshes to the server (the usual browser setup).
// Only the latest frame is kept; the pump's pull naturally drops anything
// the client pushed in between.
type Feed struct {
	mu     sync.Mutex
	faces  []landmark.Face
	at     time.Time
	maxAge time.Duration

	now func() time.Time // test hook
}

// NewFeed creates a feed. Frames older than maxAge are treated as absent.
func NewFeed(maxAge time.Duration) *Feed {
	return &Feed{maxAge: maxAge, now: time.Now}
}

// Push stores the faces for the most recent frame. An empty slice is a
// valid frame meaning "no face detected".
func (f *Feed) Push(faces []landmark.Face) {
	f.mu.Lock()
	f.faces = faces
	f.at = f.now()
	f.mu.Unlock()
}

// NextFaces returns the latest pushed frame, or ErrNoFrame when nothing
// fresh has arrived.
func (f *Feed) NextFaces(ctx context.Context) ([]landmark.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.at.IsZero() || f.now().Sub(f.at) > f.maxAge {
		return nil, ErrNoFrame
	}
	return f.faces, nil
}
