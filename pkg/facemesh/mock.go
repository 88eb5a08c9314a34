package facemesh

import (
	"context"
	"sync"

	"github.com/proctorwatch/go-proctor/pkg/landmark"
)

// Mock implements Provider for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(ctx context.Context, jpeg []byte) ([]landmark.Face, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []string
}

// NewMock creates a mock provider that reports no faces and healthy.
func NewMock() *Mock {
	return &Mock{
		DetectFunc: func(ctx context.Context, jpeg []byte) ([]landmark.Face, error) {
			return nil, nil
		},
		HealthFunc: func(ctx context.Context) error { return nil },
	}
}

// Detect calls DetectFunc and records the call.
func (m *Mock) Detect(ctx context.Context, jpeg []byte) ([]landmark.Face, error) {
	m.record("Detect")
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, jpeg)
	}
	return nil, WrapError("mock", ErrBackendUnavailable)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record("Close")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns the recorded method names in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *Mock) record(method string) {
	m.mu.Lock()
	m.calls = append(m.calls, method)
	m.mu.Unlock()
}
