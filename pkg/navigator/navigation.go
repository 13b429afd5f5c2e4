package navigator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-echosight/pkg/camera"
)

// ErrAlreadyNavigating is returned by Start while a session is running.
var ErrAlreadyNavigating = errors.New("navigator: already navigating")

// Start opens the camera and begins a fresh navigation session.
func (a *App) Start(ctx context.Context) error {
	a.navMu.Lock()
	defer a.navMu.Unlock()

	if a.navigating.Load() {
		return ErrAlreadyNavigating
	}

	cfg := a.cameras.GetConfig()
	src, err := a.openSource(cfg, a.logger)
	if err != nil {
		a.speaker.Speak("Camera is not available.")
		return fmt.Errorf("open camera: %w", err)
	}

	id := a.analyzer.NewSession()
	a.source = src
	a.navCtx = ctx
	a.navigating.Store(true)

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.stopLoop, a.loopDone = cancel, done
	go a.frameLoop(loopCtx, src, frameInterval(cfg), done)

	a.logger.Info("navigation started", "session", id, "camera", cfg.Backend)
	a.speaker.Speak(MsgStarted)
	a.web.PublishStatus(a.Status())
	return nil
}

// Stop ends the running session. It is a no-op when idle.
func (a *App) Stop() {
	a.navMu.Lock()
	defer a.navMu.Unlock()

	if !a.navigating.Load() {
		return
	}
	a.haltLocked()
	a.analyzer.Reset()

	a.logger.Info("navigation stopped", "session", a.analyzer.SessionID())
	a.speaker.Speak(MsgStopped)
	a.web.PublishStatus(a.Status())
}

// haltLocked stops the frame loop and closes the camera.
func (a *App) haltLocked() {
	if a.stopLoop != nil {
		a.stopLoop()
		<-a.loopDone
		a.stopLoop, a.loopDone = nil, nil
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("close camera", "error", err)
		}
		a.source = nil
	}
	a.navCtx = nil
	a.navigating.Store(false)
}

// IsNavigating reports whether a session is running.
func (a *App) IsNavigating() bool {
	return a.navigating.Load()
}

// frameLoop captures and analyzes one frame per tick. A slow frame
// delays the next tick instead of queueing frames.
func (a *App) frameLoop(ctx context.Context, src camera.Source, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := src.Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			if failures == 1 || failures%50 == 0 {
				a.logger.Warn("capture failed", "error", err, "failures", failures)
			}
			continue
		}
		failures = 0

		a.analyzer.Process(ctx, frame)
		a.web.PublishDecision(a.analyzer.Last())
	}
}

// applyCameraConfig reopens the camera with cfg when navigating.
func (a *App) applyCameraConfig(cfg camera.Config) error {
	a.navMu.Lock()
	defer a.navMu.Unlock()

	if !a.navigating.Load() {
		return nil
	}

	src, err := a.openSource(cfg, a.logger)
	if err != nil {
		return fmt.Errorf("reopen camera: %w", err)
	}

	a.stopLoop()
	<-a.loopDone
	if err := a.source.Close(); err != nil {
		a.logger.Warn("close camera", "error", err)
	}

	loopCtx, cancel := context.WithCancel(a.navCtx)
	done := make(chan struct{})
	a.source, a.stopLoop, a.loopDone = src, cancel, done
	go a.frameLoop(loopCtx, src, frameInterval(cfg), done)

	a.logger.Info("camera reconfigured", "width", cfg.Width, "height", cfg.Height, "framerate", cfg.Framerate)
	return nil
}

// capture grabs a single frame, from the running source if there is one
// or from a temporary source otherwise.
func (a *App) capture(ctx context.Context) (camera.Frame, error) {
	a.navMu.Lock()
	src := a.source
	a.navMu.Unlock()

	if src != nil {
		return src.Capture(ctx)
	}

	src, err := a.openSource(a.cameras.GetConfig(), a.logger)
	if err != nil {
		return camera.Frame{}, err
	}
	defer src.Close()
	return src.Capture(ctx)
}

func frameInterval(cfg camera.Config) time.Duration {
	if cfg.Framerate <= 0 {
		return 200 * time.Millisecond
	}
	return time.Second / time.Duration(cfg.Framerate)
}
