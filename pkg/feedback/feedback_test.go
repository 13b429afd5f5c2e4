package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-echosight/pkg/audioio"
	"github.com/teslashibe/go-echosight/pkg/spatial"
)

func TestController_Debounce(t *testing.T) {
	h := &MockHaptics{}
	tones := &MockTones{}
	c := NewController(h, tones, nil)

	assert.True(t, c.Handle(spatial.Near))
	assert.False(t, c.Handle(spatial.Near))

	require.Len(t, h.Patterns(), 1)
	assert.Equal(t, []int{3}, tones.Beeps())
}

func TestController_TierChanges(t *testing.T) {
	h := &MockHaptics{}
	tones := &MockTones{}
	c := NewController(h, tones, nil)

	seq := []spatial.Proximity{spatial.Far, spatial.Far, spatial.Mid, spatial.Near, spatial.Near, spatial.Far}
	for _, p := range seq {
		c.Handle(p)
	}

	assert.Equal(t, []int{1, 2, 3, 1}, tones.Beeps())

	patterns := h.Patterns()
	require.Len(t, patterns, 4)
	assert.Equal(t, []int64{0, 150}, patterns[0].Millis())
	assert.Equal(t, []int64{0, 300, 400, 300}, patterns[1].Millis())
	assert.Equal(t, []int64{0, 150, 100, 150, 100, 150}, patterns[2].Millis())
	assert.Equal(t, spatial.Far, c.Last())
}

func TestController_InvalidProximity(t *testing.T) {
	h := &MockHaptics{}
	tones := &MockTones{}
	c := NewController(h, tones, nil)

	assert.False(t, c.Handle(spatial.Proximity(99)))
	assert.Empty(t, h.Patterns())
	assert.Empty(t, tones.Beeps())
	assert.Equal(t, spatial.ProximityUnknown, c.Last())
}

func TestController_DriverFailuresSwallowed(t *testing.T) {
	h := &MockHaptics{Panic: true}
	tones := &MockTones{}
	c := NewController(h, tones, nil)

	assert.NotPanics(t, func() { c.Handle(spatial.Mid) })
	assert.Equal(t, []int{2}, tones.Beeps(), "tones still fire when haptics panic")

	h2 := &MockHaptics{Err: errors.New("no motor")}
	c2 := NewController(h2, nil, nil)
	assert.True(t, c2.Handle(spatial.Near))
}

func TestController_Reset(t *testing.T) {
	h := &MockHaptics{}
	tones := &MockTones{}
	c := NewController(h, tones, nil)

	c.Handle(spatial.Near)
	c.Reset()
	assert.Equal(t, 1, h.Stops())
	assert.Equal(t, spatial.ProximityUnknown, c.Last())

	// Same tier after reset is cued again.
	assert.True(t, c.Handle(spatial.Near))
	assert.Equal(t, []int{3, 3}, tones.Beeps())
}

func TestPattern(t *testing.T) {
	cues := DefaultCues()
	assert.Equal(t, 1, cues[spatial.Far].Pattern.Pulses())
	assert.Equal(t, 2, cues[spatial.Mid].Pattern.Pulses())
	assert.Equal(t, 3, cues[spatial.Near].Pattern.Pulses())
	assert.Equal(t, 650*time.Millisecond, cues[spatial.Near].Pattern.Total())
}

func TestToneSynth_Render(t *testing.T) {
	synth := NewToneSynth(nil, DefaultToneConfig())

	// 3 beeps of 150ms and 2 gaps of 200ms at 24kHz.
	got := synth.Render(3, 24000)
	assert.Len(t, got, 3*3600+2*4800)
}

func TestToneSynth_Beep(t *testing.T) {
	sink := audioio.NewMockSink(audioio.DefaultConfig(), nil)
	ctx := context.Background()
	require.NoError(t, sink.Start(ctx))

	synth := NewToneSynth(sink, DefaultToneConfig())
	require.NoError(t, synth.Beep(ctx, 2))

	chunks := sink.Chunks()
	require.Len(t, chunks, 1)
	assert.Equal(t, 24000, chunks[0].SampleRate)
	assert.Zero(t, len(chunks[0].Samples)%480, "padded to whole buffers")
	assert.GreaterOrEqual(t, len(chunks[0].Samples), 2*3600+4800)

	assert.Error(t, synth.Beep(ctx, 0))
}

func TestToneSynth_SinkStopped(t *testing.T) {
	sink := audioio.NewMockSink(audioio.DefaultConfig(), nil)
	synth := NewToneSynth(sink, DefaultToneConfig())
	assert.Error(t, synth.Beep(context.Background(), 1))
}

type jsonRecorder struct {
	msgs []string
}

func (r *jsonRecorder) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.msgs = append(r.msgs, string(data))
	return nil
}

func TestHubHaptics(t *testing.T) {
	rec := &jsonRecorder{}
	h := NewHubHaptics(rec)

	require.NoError(t, h.Vibrate(context.Background(), DefaultCues()[spatial.Mid].Pattern))
	require.NoError(t, h.Stop())

	require.Len(t, rec.msgs, 2)
	assert.JSONEq(t, `{"type":"vibrate","pattern_ms":[0,300,400,300]}`, rec.msgs[0])
	assert.JSONEq(t, `{"type":"stop"}`, rec.msgs[1])
}
