// Package feedback converts proximity changes into haptic and tone cues.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-echosight/pkg/spatial"
)

// Haptics drives a vibration motor.
type Haptics interface {
	Vibrate(ctx context.Context, p Pattern) error
	Stop() error
}

// Tones plays short audible beeps.
type Tones interface {
	Beep(ctx context.Context, count int) error
}

// Controller fires one cue per proximity change. Repeating the same tier
// does nothing, so a user standing near an obstacle is cued once.
type Controller struct {
	haptics Haptics
	tones   Tones
	cues    map[spatial.Proximity]Cue
	logger  *slog.Logger

	mu   sync.Mutex
	last spatial.Proximity // ProximityUnknown until the first cue
}

// NewController creates a controller. Either driver may be nil to
// disable that channel.
func NewController(h Haptics, t Tones, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		haptics: h,
		tones:   t,
		cues:    DefaultCues(),
		logger:  logger.With("component", "feedback"),
	}
}

// Handle cues p if it differs from the last tier. It reports whether
// anything fired.
func (c *Controller) Handle(p spatial.Proximity) bool {
	return c.HandleContext(context.Background(), p)
}

// HandleContext is Handle with a caller context for the drivers.
// Driver errors and panics are logged and swallowed.
func (c *Controller) HandleContext(ctx context.Context, p spatial.Proximity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p == c.last {
		return false
	}

	cue, ok := c.cues[p]
	if !ok {
		c.logger.Warn("no cue for proximity", "proximity", p.String(), "value", int(p))
		return false
	}

	c.last = p
	c.logger.Debug("proximity changed", "proximity", p.String())

	if c.haptics != nil {
		if err := safeCall(func() error { return c.haptics.Vibrate(ctx, cue.Pattern) }); err != nil {
			c.logger.Warn("haptic cue failed", "proximity", p.String(), "error", err)
		}
	}
	if c.tones != nil {
		if err := safeCall(func() error { return c.tones.Beep(ctx, cue.Beeps) }); err != nil {
			c.logger.Warn("tone cue failed", "proximity", p.String(), "error", err)
		}
	}

	return true
}

// Last returns the most recently cued tier.
func (c *Controller) Last() spatial.Proximity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Reset forgets the last tier and stops any running vibration.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.last = spatial.ProximityUnknown
	c.mu.Unlock()

	if c.haptics == nil {
		return
	}
	if err := safeCall(c.haptics.Stop); err != nil {
		c.logger.Warn("haptic stop failed", "error", err)
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
