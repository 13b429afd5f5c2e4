package announce

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum gap before repeating the same message.
const DefaultCooldown = 3000 * time.Millisecond

// Gate suppresses repeats of the last spoken message within the cooldown.
// A different message always passes.
type Gate struct {
	cooldown time.Duration

	mu          sync.Mutex
	lastSpoken  time.Time
	lastMessage string
}

// NewGate creates a gate. A non-positive cooldown uses DefaultCooldown.
func NewGate(cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{cooldown: cooldown}
}

// Offer reports whether msg should be spoken at now, and records it if so.
func (g *Gate) Offer(msg string, now time.Time) bool {
	if msg == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if msg == g.lastMessage && now.Sub(g.lastSpoken) <= g.cooldown {
		return false
	}

	g.lastSpoken = now
	g.lastMessage = msg
	return true
}

// Last returns the last emitted message and when it was emitted.
func (g *Gate) Last() (string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastMessage, g.lastSpoken
}

// Reset forgets the last message.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSpoken = time.Time{}
	g.lastMessage = ""
}
