package pipeline

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-echosight/pkg/announce"
	"github.com/teslashibe/go-echosight/pkg/feedback"
	"github.com/teslashibe/go-echosight/pkg/stabilizer"
)

// Session owns all state that persists across frames for one navigation
// run: the stabilizer window, the last cued tier and the cooldown gate.
type Session struct {
	ID      uuid.UUID
	Started time.Time

	Stabilizer *stabilizer.Stabilizer
	Feedback   *feedback.Controller
	Gate       *announce.Gate
}

// NewSession creates a session with fresh state.
func NewSession(cfg Config, h feedback.Haptics, t feedback.Tones, logger *slog.Logger) *Session {
	id := uuid.New()
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:         id,
		Started:    time.Now(),
		Stabilizer: stabilizer.New(cfg.Stabilizer),
		Feedback:   feedback.NewController(h, t, logger.With("session", id.String())),
		Gate:       announce.NewGate(cfg.Cooldown),
	}
}

// Reset clears temporal state and stops any running vibration.
func (s *Session) Reset() {
	s.Stabilizer.Reset()
	s.Feedback.Reset()
	s.Gate.Reset()
}
