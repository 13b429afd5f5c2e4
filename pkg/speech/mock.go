package speech

import (
	"strings"
	"sync"
)

// Mock records spoken text without producing audio.
type Mock struct {
	mu       sync.Mutex
	spoken   []string
	speaking bool
}

// Speak records text.
func (m *Mock) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = append(m.spoken, text)
}

// IsSpeaking returns the value set by SetSpeaking.
func (m *Mock) IsSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// SetSpeaking controls IsSpeaking.
func (m *Mock) SetSpeaking(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speaking = v
}

// Spoken returns everything said so far.
func (m *Mock) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.spoken))
	copy(out, m.spoken)
	return out
}

// Last returns the most recent text, or "".
func (m *Mock) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.spoken) == 0 {
		return ""
	}
	return m.spoken[len(m.spoken)-1]
}
