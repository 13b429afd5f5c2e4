package feedback

import (
	"context"
	"sync"
)

// HapticEvent is the message the wearable client receives.
type HapticEvent struct {
	Type    string  `json:"type"` // "vibrate" or "stop"
	Pattern []int64 `json:"pattern_ms,omitempty"`
}

// JSONBroadcaster publishes JSON to connected clients.
// *hub.Hub satisfies it.
type JSONBroadcaster interface {
	BroadcastJSON(v any) error
}

// HubHaptics forwards vibration patterns to the wearable client, which
// plays them on its own motor.
type HubHaptics struct {
	out JSONBroadcaster
}

// NewHubHaptics creates a haptics driver on top of a broadcaster.
func NewHubHaptics(out JSONBroadcaster) *HubHaptics {
	return &HubHaptics{out: out}
}

// Vibrate sends the pattern.
func (h *HubHaptics) Vibrate(ctx context.Context, p Pattern) error {
	return h.out.BroadcastJSON(HapticEvent{Type: "vibrate", Pattern: p.Millis()})
}

// Stop cancels any running pattern on the client.
func (h *HubHaptics) Stop() error {
	return h.out.BroadcastJSON(HapticEvent{Type: "stop"})
}

// MockHaptics implements Haptics for testing.
type MockHaptics struct {
	// Err, when set, is returned from Vibrate.
	Err error
	// Panic, when true, makes Vibrate panic.
	Panic bool

	mu       sync.Mutex
	patterns []Pattern
	stops    int
}

// Vibrate records the pattern.
func (m *MockHaptics) Vibrate(ctx context.Context, p Pattern) error {
	if m.Panic {
		panic("vibrator exploded")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, p)
	return m.Err
}

// Stop counts the call.
func (m *MockHaptics) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return nil
}

// Patterns returns the recorded patterns.
func (m *MockHaptics) Patterns() []Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Pattern, len(m.patterns))
	copy(out, m.patterns)
	return out
}

// Stops returns how many times Stop was called.
func (m *MockHaptics) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// MockTones implements Tones for testing.
type MockTones struct {
	mu    sync.Mutex
	beeps []int
}

// Beep records the count.
func (m *MockTones) Beep(ctx context.Context, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beeps = append(m.beeps, count)
	return nil
}

// Beeps returns the recorded beep counts, one per cue.
func (m *MockTones) Beeps() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.beeps))
	copy(out, m.beeps)
	return out
}

var (
	_ Haptics = (*HubHaptics)(nil)
	_ Haptics = (*MockHaptics)(nil)
	_ Tones   = (*MockTones)(nil)
)
