package vision

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/proctorwatch/go-proctor/internal/log"
	"github.com/proctorwatch/go-proctor/pkg/landmark"
)

// FrameSource supplies the detected faces for the next available video
// frame. Zero faces and multiple faces are both valid results. The call is
// expected to suspend on an external inference backend and must honor ctx.
type FrameSource interface {
	NextFaces(ctx context.Context) ([]landmark.Face, error)
}

// Pump drives an Analyzer once per frame interval. At most one inference
// call is in flight at a time; ticks that arrive while a call is
// outstanding are dropped so a slow backend cannot build a backlog.
type Pump struct {
	analyzer *Analyzer
	source   FrameSource
	onFrame  func(Frame)

	interval time.Duration
	timeout  time.Duration
	inFlight atomic.Bool
}

// NewPump creates a pump for the analyzer. onFrame, if non-nil, receives
// every produced frame. Interval and timeout come from the analyzer config.
func NewPump(a *Analyzer, source FrameSource, onFrame func(Frame)) *Pump {
	return &Pump{
		analyzer: a,
		source:   source,
		onFrame:  onFrame,
		interval: a.cfg.FrameInterval,
		timeout:  a.cfg.DetectTimeout,
	}
}

// Run processes frames until ctx is canceled. Each tick is handled in its
// own goroutine; Step's in-flight gate enforces the one-call bound.
func (p *Pump) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.analyzer.Stop()
			return
		case <-ticker.C:
			go p.Step(ctx)
		}
	}
}

// Step performs a single detect-and-analyze pass and returns the produced
// frame. It returns ok=false when the tick was dropped (a call already in
// flight) or the inference call failed; a failed call is logged and skipped
// without touching analyzer state.
func (p *Pump) Step(ctx context.Context) (Frame, bool) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return Frame{}, false
	}
	defer p.inFlight.Store(false)

	dctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	faces, err := p.source.NextFaces(dctx)
	if err != nil {
		log.Warn("vision: frame detection failed", "err", err)
		return Frame{}, false
	}

	frame := p.analyzer.ProcessFaces(faces)
	if p.onFrame != nil {
		p.onFrame(frame)
	}
	return frame, true
}
