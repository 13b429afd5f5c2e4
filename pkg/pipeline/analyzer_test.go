package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-echosight/pkg/announce"
	"github.com/teslashibe/go-echosight/pkg/camera"
	"github.com/teslashibe/go-echosight/pkg/detection"
	"github.com/teslashibe/go-echosight/pkg/feedback"
	"github.com/teslashibe/go-echosight/pkg/spatial"
)

type fakeSpeech struct {
	mu     sync.Mutex
	busy   bool
	spoken []string
}

func (f *fakeSpeech) Speak(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
}

func (f *fakeSpeech) IsSpeaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeSpeech) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

type fakeOverlay struct {
	mu    sync.Mutex
	calls [][]detection.Detection
}

func (f *fakeOverlay) SetResults(dets []detection.Detection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dets)
}

func (f *fakeOverlay) last() []detection.Detection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type panicDetector struct{}

func (panicDetector) Detect(ctx context.Context, jpeg []byte) ([]detection.Detection, error) {
	panic("model crashed")
}

func (panicDetector) Close() error { return nil }

type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Unix(1700000000, 0)} }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func fixedComposer() *announce.Composer {
	return announce.NewComposer(announce.WithTemplates(announce.Templates{
		spatial.Far:  {"%s is far ahead"},
		spatial.Mid:  {"%s is some steps ahead"},
		spatial.Near: {"%s is very near you"},
	}))
}

var frame = camera.Frame{JPEG: []byte{0xff, 0xd8}, Width: 1000, Height: 1000}

// bigPerson covers half the frame, centered: area ratio 0.5.
var bigPerson = detection.Detection{
	Label:      "person",
	Confidence: 0.9,
	Box:        detection.Box{Left: 250, Top: 0, Right: 750, Bottom: 1000},
}

// smallPerson is centered but covers 1% of the frame.
var smallPerson = detection.Detection{
	Label:      "person",
	Confidence: 0.9,
	Box:        detection.Box{Left: 450, Top: 450, Right: 550, Bottom: 550},
}

type harness struct {
	analyzer *Analyzer
	detector *detection.Mock
	speech   *fakeSpeech
	overlay  *fakeOverlay
	haptics  *feedback.MockHaptics
	tones    *feedback.MockTones
	clock    *clock
}

func newHarness(frames ...[]detection.Detection) *harness {
	h := &harness{
		detector: detection.NewMock(frames...),
		speech:   &fakeSpeech{},
		overlay:  &fakeOverlay{},
		haptics:  &feedback.MockHaptics{},
		tones:    &feedback.MockTones{},
		clock:    newClock(),
	}
	h.analyzer = NewAnalyzer(DefaultConfig(), h.detector, h.speech,
		WithOverlay(h.overlay),
		WithFeedback(h.haptics, h.tones),
		WithComposer(fixedComposer()),
		WithClock(h.clock.now),
	)
	return h
}

func (h *harness) run(n int) []Outcome {
	out := make([]Outcome, n)
	for i := range out {
		out[i] = h.analyzer.Process(context.Background(), frame)
	}
	return out
}

func TestProcess_BlockingObstacleIsSpoken(t *testing.T) {
	h := newHarness([]detection.Detection{bigPerson})

	got := h.run(3)
	assert.Equal(t, []Outcome{OutcomeUnstable, OutcomeUnstable, OutcomeSpoken}, got)
	assert.Equal(t, []string{"Person is very near you"}, h.speech.Spoken())
	assert.Equal(t, []int{3}, h.tones.Beeps(), "near cue fired once")

	dec := h.analyzer.Last()
	assert.Equal(t, OutcomeSpoken, dec.Outcome)
	assert.True(t, dec.Blocking)
	assert.Equal(t, "near", dec.Proximity)
	assert.Equal(t, "center", dec.Direction)
	assert.Equal(t, "obstacle", dec.Category)
}

func TestProcess_NewObjectInPathIsBlocking(t *testing.T) {
	chair := detection.Detection{Label: "chair", Confidence: 0.9, Box: detection.Box{Left: 0, Top: 0, Right: 200, Bottom: 1000}}
	person := detection.Detection{Label: "person", Confidence: 0.9, Box: detection.Box{Left: 400, Top: 0, Right: 600, Bottom: 1000}}
	c, p := []detection.Detection{chair}, []detection.Detection{person}
	h := newHarness(c, c, c, p, p, p)

	got := h.run(6)
	assert.Equal(t, OutcomeNotBlocking, got[2], "chair at the left edge")
	assert.Equal(t, OutcomeSpoken, got[5])

	dec := h.analyzer.Last()
	require.NotNil(t, dec.Object)
	assert.Equal(t, "person", dec.Object.Label)
	assert.Equal(t, person.Box, dec.Object.Box)
	assert.Equal(t, "center", dec.Direction)
	assert.True(t, dec.Blocking)
}

func TestProcess_SmallObstacleProducesNoSpeech(t *testing.T) {
	h := newHarness([]detection.Detection{smallPerson})

	got := h.run(5)
	assert.Equal(t, OutcomeNotBlocking, got[4])
	assert.Empty(t, h.speech.Spoken())
}

func TestProcess_Cooldown(t *testing.T) {
	h := newHarness([]detection.Detection{bigPerson})

	h.run(3)
	h.clock.advance(time.Second)
	assert.Equal(t, OutcomeCooldown, h.run(1)[0])

	h.clock.advance(2500 * time.Millisecond)
	assert.Equal(t, OutcomeSpoken, h.run(1)[0])
	assert.Len(t, h.speech.Spoken(), 2)
}

func TestProcess_BusySpeechSkipsDetection(t *testing.T) {
	h := newHarness([]detection.Detection{bigPerson})
	h.speech.busy = true

	assert.Equal(t, []Outcome{OutcomeSkippedBusy, OutcomeSkippedBusy}, h.run(2))
	assert.Equal(t, 0, h.detector.Calls())
}

func TestProcess_IgnoredLabel(t *testing.T) {
	cup := bigPerson
	cup.Label = "cup"
	h := newHarness([]detection.Detection{cup})

	got := h.run(3)
	assert.Equal(t, OutcomeIgnored, got[2])
	assert.Empty(t, h.speech.Spoken())
	assert.Equal(t, []int{3}, h.tones.Beeps(), "feedback still reflects proximity")
}

func TestProcess_EmptyFrameClearsOverlayAndSmoothing(t *testing.T) {
	h := newHarness(
		[]detection.Detection{bigPerson},
		[]detection.Detection{bigPerson},
		[]detection.Detection{bigPerson},
		nil,
	)

	h.run(3)
	_, ok := h.analyzer.session.Stabilizer.Smoothed()
	require.True(t, ok)

	assert.Equal(t, OutcomeNoDetections, h.run(1)[0])
	assert.Nil(t, h.overlay.last())
	_, ok = h.analyzer.session.Stabilizer.Smoothed()
	assert.False(t, ok)
}

func TestProcess_OverlayGetsRawCandidates(t *testing.T) {
	low := smallPerson
	low.Confidence = 0.2
	h := newHarness([]detection.Detection{bigPerson, low})

	h.run(1)
	assert.Len(t, h.overlay.last(), 2)
}

func TestProcess_DetectorErrorIsEmptyFrame(t *testing.T) {
	h := newHarness()
	h.detector.Err = errors.New("timeout")

	assert.Equal(t, OutcomeNoDetections, h.run(1)[0])
	assert.Nil(t, h.overlay.last())
}

func TestProcess_PanicRecovered(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), panicDetector{}, &fakeSpeech{})

	var got Outcome
	assert.NotPanics(t, func() { got = a.Process(context.Background(), frame) })
	assert.Equal(t, OutcomeError, got)

	// The analyzer is still usable.
	assert.Equal(t, OutcomeError, a.Process(context.Background(), frame))
	assert.Equal(t, OutcomeError, a.Last().Outcome)
}

func TestProcess_DegenerateFrameSize(t *testing.T) {
	h := newHarness([]detection.Detection{bigPerson})
	zero := camera.Frame{JPEG: frame.JPEG}

	var got Outcome
	for i := 0; i < 3; i++ {
		got = h.analyzer.Process(context.Background(), zero)
	}
	assert.Equal(t, OutcomeNotBlocking, got)
	assert.Equal(t, []int{1}, h.tones.Beeps(), "invalid size falls back to far")
}

func TestReset(t *testing.T) {
	h := newHarness([]detection.Detection{bigPerson})
	h.run(3)

	h.analyzer.Reset()
	assert.Equal(t, 1, h.haptics.Stops())
	assert.Nil(t, h.overlay.last())

	// Fresh confirmation and a fresh cue are needed after reset.
	got := h.run(3)
	assert.Equal(t, []Outcome{OutcomeUnstable, OutcomeUnstable, OutcomeSpoken}, got)
	assert.Equal(t, []int{3, 3}, h.tones.Beeps())
}

func TestNewSession(t *testing.T) {
	h := newHarness([]detection.Detection{bigPerson})
	first := h.analyzer.SessionID()

	second := h.analyzer.NewSession()
	assert.NotEqual(t, first, second)
	assert.Equal(t, second, h.analyzer.SessionID())
	assert.Equal(t, 1, h.haptics.Stops())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	det := detection.NewMock([]detection.Detection{bigPerson})
	a := NewAnalyzer(DefaultConfig(), det, &fakeSpeech{}, WithMetrics(m), WithComposer(fixedComposer()))
	for i := 0; i < 3; i++ {
		a.Process(context.Background(), frame)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.frames.WithLabelValues("unstable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frames.WithLabelValues("spoken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cues.WithLabelValues("near")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "spoken", OutcomeSpoken.String())
	assert.Equal(t, "skipped_busy", OutcomeSkippedBusy.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}
