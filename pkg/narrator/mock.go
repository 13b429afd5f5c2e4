package narrator

import (
	"context"
	"sync"
)

// Mock implements Narrator for testing.
type Mock struct {
	Description string
	Err         error

	mu     sync.Mutex
	frames [][]byte
}

// Describe records the frame and returns Description or Err.
func (m *Mock) Describe(ctx context.Context, jpeg []byte) (string, error) {
	m.mu.Lock()
	m.frames = append(m.frames, jpeg)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Description, nil
}

// Calls returns how many frames were described.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

var _ Narrator = (*Mock)(nil)
