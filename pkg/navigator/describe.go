package navigator

import (
	"context"
	"time"
)

const describeTimeout = 45 * time.Second

type waiter interface {
	Wait(ctx context.Context) error
}

// Describe captures one frame and speaks the narrator's description of
// it. Only one description runs at a time; extra requests are dropped.
func (a *App) Describe(ctx context.Context) {
	if a.narrator == nil {
		a.speaker.Speak(MsgNoNarrator)
		return
	}
	if !a.describing.CompareAndSwap(false, true) {
		a.logger.Debug("describe already running")
		return
	}
	defer a.describing.Store(false)

	ctx, cancel := context.WithTimeout(ctx, describeTimeout)
	defer cancel()

	a.speaker.Speak(MsgAnalyzing)
	if w, ok := a.speaker.(waiter); ok {
		if err := w.Wait(ctx); err != nil {
			return
		}
	}

	frame, err := a.capture(ctx)
	if err != nil || len(frame.JPEG) == 0 {
		a.logger.Warn("describe capture failed", "error", err)
		a.speaker.Speak(MsgAnalyzeFailed)
		return
	}

	start := time.Now()
	text, err := a.narrator.Describe(ctx, frame.JPEG)
	if err != nil {
		a.logger.Warn("describe failed", "error", err, "elapsed", time.Since(start))
		a.speaker.Speak(MsgAnalyzeFailed)
		return
	}

	a.logger.Info("scene described", "chars", len(text), "elapsed", time.Since(start))
	a.speaker.Speak(text)
}
