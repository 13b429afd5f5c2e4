package detection

import (
	"context"
	"sync"
)

// Mock implements Detector for testing.
// It replays Frames in order; once exhausted it keeps returning the last
// frame (or nothing if Frames is empty).
type Mock struct {
	Frames [][]Detection

	// Err, when set, is returned instead of detections.
	Err error

	mu    sync.Mutex
	calls int
}

// NewMock creates a mock that replays the given frames.
func NewMock(frames ...[]Detection) *Mock {
	return &Mock{Frames: frames}
}

// Detect returns the next scripted frame.
func (m *Mock) Detect(ctx context.Context, jpeg []byte) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	m.calls++

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Frames) == 0 {
		return nil, nil
	}
	if idx >= len(m.Frames) {
		idx = len(m.Frames) - 1
	}

	out := make([]Detection, len(m.Frames[idx]))
	copy(out, m.Frames[idx])
	return out, nil
}

// Calls returns how many times Detect was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}

var _ Detector = (*Mock)(nil)
