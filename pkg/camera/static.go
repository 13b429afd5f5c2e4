package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"sync"
	"time"
)

// StaticSource returns the same JPEG on every capture.
type StaticSource struct {
	frame Frame
}

// NewStatic creates a source from JPEG bytes.
func NewStatic(jpeg []byte) (*StaticSource, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(jpeg))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg header: %w", err)
	}
	return &StaticSource{frame: Frame{JPEG: jpeg, Width: cfg.Width, Height: cfg.Height}}, nil
}

// NewStaticFile creates a source from a JPEG file.
func NewStaticFile(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewStatic(data)
}

// Capture returns the image.
func (s *StaticSource) Capture(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	f := s.frame
	f.Captured = time.Now()
	return f, nil
}

// Close is a no-op.
func (s *StaticSource) Close() error {
	return nil
}

// Mock implements Source for testing. It replays Frames in order and
// repeats the last one.
type Mock struct {
	Frames []Frame

	// Err, when set, is returned from Capture.
	Err error

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMock creates a mock source.
func NewMock(frames ...Frame) *Mock {
	return &Mock{Frames: frames}
}

// Capture returns the next frame.
func (m *Mock) Capture(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Frame{}, ErrClosed
	}
	m.calls++
	if m.Err != nil {
		return Frame{}, m.Err
	}
	if len(m.Frames) == 0 {
		return Frame{Captured: time.Now()}, nil
	}

	idx := m.calls - 1
	if idx >= len(m.Frames) {
		idx = len(m.Frames) - 1
	}
	f := m.Frames[idx]
	f.Captured = time.Now()
	return f, nil
}

// Calls returns how many frames were requested.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var (
	_ Source = (*StaticSource)(nil)
	_ Source = (*Mock)(nil)
)
