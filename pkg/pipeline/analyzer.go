// Package pipeline runs the per-frame decision chain: detect, stabilize,
// locate, cue, classify, gate and announce.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/teslashibe/go-echosight/pkg/announce"
	"github.com/teslashibe/go-echosight/pkg/camera"
	"github.com/teslashibe/go-echosight/pkg/detection"
	"github.com/teslashibe/go-echosight/pkg/feedback"
	"github.com/teslashibe/go-echosight/pkg/semantic"
	"github.com/teslashibe/go-echosight/pkg/spatial"
)

// Speech is the voice channel. Speak must not block.
type Speech interface {
	Speak(text string)
	IsSpeaking() bool
}

// Overlay receives raw detections for visualization. nil clears it.
// SetResults must not block.
type Overlay interface {
	SetResults(dets []detection.Detection)
}

// Analyzer processes one frame at a time. Concurrent callers are
// serialized.
type Analyzer struct {
	cfg        Config
	detector   detection.Detector
	speech     Speech
	overlay    Overlay
	haptics    feedback.Haptics
	tones      feedback.Tones
	classifier *semantic.Classifier
	composer   *announce.Composer
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	session *Session
	last    Decision
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithOverlay sets the overlay sink.
func WithOverlay(o Overlay) Option {
	return func(a *Analyzer) { a.overlay = o }
}

// WithFeedback sets the haptic and tone drivers.
func WithFeedback(h feedback.Haptics, t feedback.Tones) Option {
	return func(a *Analyzer) {
		a.haptics = h
		a.tones = t
	}
}

// WithMetrics sets the prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithComposer replaces the message composer.
func WithComposer(c *announce.Composer) Option {
	return func(a *Analyzer) { a.composer = c }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer wires the stages together and opens a first session.
func NewAnalyzer(cfg Config, det detection.Detector, sp Speech, opts ...Option) *Analyzer {
	a := &Analyzer{
		cfg:        cfg,
		detector:   det,
		speech:     sp,
		classifier: semantic.New(cfg.Semantic),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.composer == nil {
		a.composer = announce.NewComposer(announce.WithDirection(cfg.SayDirection))
	}
	a.logger = a.logger.With("component", "pipeline")
	a.session = NewSession(cfg, a.haptics, a.tones, a.logger)
	return a
}

// Process runs the decision chain on one frame and reports where it
// stopped. It never panics.
func (a *Analyzer) Process(ctx context.Context, frame camera.Frame) (out Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := a.now()
	dec := Decision{SessionID: a.session.ID.String(), At: start}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("frame processing panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			out = OutcomeError
		}
		dec.Outcome = out
		dec.Latency = a.now().Sub(start)
		a.last = dec
		a.metrics.observeFrame(out, dec.Latency)
	}()

	// 1. Busy voice channel mutes the whole frame.
	if a.speech != nil && a.speech.IsSpeaking() {
		return OutcomeSkippedBusy
	}

	// 2. Detect.
	candidates := a.detect(ctx, frame.JPEG)
	dec.Candidates = len(candidates)
	a.metrics.observeCandidates(len(candidates))

	// 3. Nothing seen: clear overlay and the smoothed box.
	if len(candidates) == 0 {
		a.setOverlay(nil)
		a.session.Stabilizer.Filter(nil)
		return OutcomeNoDetections
	}

	// 4. Overlay gets the raw candidates.
	a.setOverlay(candidates)

	// 5. Stabilize.
	obj, ok := a.session.Stabilizer.Filter(candidates)
	if !ok {
		return OutcomeUnstable
	}

	// 6. Locate.
	dir := spatial.EstimateDirection(&obj, frame.Width)
	prox := a.cfg.Proximity.Estimate(&obj, frame.Width, frame.Height)
	dec.setObject(obj, dir, prox)

	// 7. Cue on tier change.
	if a.session.Feedback.HandleContext(ctx, prox) {
		a.metrics.observeCue(prox)
	}

	// 8. Classify.
	category := a.classifier.Classify(obj.Label)
	dec.setCategory(category)
	if category != semantic.Obstacle {
		return OutcomeIgnored
	}

	// 9. In the path?
	if !a.cfg.Obstacle.IsBlocking(&obj, frame.Width, frame.Height) {
		return OutcomeNotBlocking
	}
	dec.Blocking = true

	// 10. Compose and gate.
	msg := a.composer.ComposeDirected(obj.Label, prox, dir)
	if !a.session.Gate.Offer(msg, a.now()) {
		return OutcomeCooldown
	}

	dec.Message = msg
	a.logger.Info("announcing obstacle",
		"session", dec.SessionID,
		"label", obj.Label,
		"proximity", prox.String(),
		"direction", dir.String(),
		"message", msg,
	)
	if a.speech != nil {
		a.speech.Speak(msg)
	}
	return OutcomeSpoken
}

// detect calls the detector and treats any failure as an empty frame.
func (a *Analyzer) detect(ctx context.Context, jpeg []byte) []detection.Detection {
	if a.detector == nil {
		return nil
	}

	if a.cfg.DetectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.DetectTimeout)
		defer cancel()
	}

	dets, err := a.detector.Detect(ctx, jpeg)
	if err != nil {
		a.metrics.detectorError()
		a.logger.Warn("detection failed", "error", err)
		return nil
	}
	return dets
}

func (a *Analyzer) setOverlay(dets []detection.Detection) {
	if a.overlay != nil {
		a.overlay.SetResults(dets)
	}
}

// Reset clears all temporal state in the current session and stops
// haptics. The overlay is cleared as well.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.session.Reset()
	a.setOverlay(nil)
}

// NewSession replaces the current session with a fresh one and returns
// its id. The old session's haptics are stopped.
func (a *Analyzer) NewSession() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.session.Feedback.Reset()
	a.session = NewSession(a.cfg, a.haptics, a.tones, a.logger)
	a.last = Decision{}
	return a.session.ID.String()
}

// SessionID returns the current session id.
func (a *Analyzer) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.ID.String()
}

// Last returns the decision for the most recent frame.
func (a *Analyzer) Last() Decision {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}
