package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-echosight/pkg/audioio"
)

// ToneConfig shapes the beeps.
type ToneConfig struct {
	Frequency float64       `yaml:"frequency"` // Hz
	Amplitude float64       `yaml:"amplitude"` // 0-1
	Duration  time.Duration `yaml:"duration"`
	Gap       time.Duration `yaml:"gap"`
}

// DefaultToneConfig returns 150ms 880Hz beeps with 200ms gaps.
func DefaultToneConfig() ToneConfig {
	return ToneConfig{
		Frequency: 880,
		Amplitude: 0.6,
		Duration:  150 * time.Millisecond,
		Gap:       200 * time.Millisecond,
	}
}

// ToneSynth renders beeps as PCM into an audio sink.
type ToneSynth struct {
	sink audioio.Sink
	cfg  ToneConfig
}

// NewToneSynth creates a synth writing to sink.
func NewToneSynth(sink audioio.Sink, cfg ToneConfig) *ToneSynth {
	return &ToneSynth{sink: sink, cfg: cfg}
}

// Beep writes count beeps separated by the configured gap. The burst is
// padded to whole sink buffers so nothing is left pending.
func (t *ToneSynth) Beep(ctx context.Context, count int) error {
	if count <= 0 {
		return fmt.Errorf("invalid beep count %d", count)
	}

	sc := t.sink.Config()
	samples := t.Render(count, sc.SampleRate)

	if frame := sc.BufferSize(); frame > 0 && len(samples)%frame != 0 {
		samples = append(samples, make([]int16, frame-len(samples)%frame)...)
	}
	if sc.Channels > 1 {
		samples = interleave(samples, sc.Channels)
	}

	return t.sink.Write(ctx, audioio.AudioChunk{
		Samples:    samples,
		SampleRate: sc.SampleRate,
		Channels:   sc.Channels,
	})
}

// Render returns count mono beeps at sampleRate, unpadded.
func (t *ToneSynth) Render(count, sampleRate int) []int16 {
	beep := audioio.Sine(t.cfg.Frequency, t.cfg.Amplitude, t.cfg.Duration, sampleRate)
	gap := audioio.Silence(t.cfg.Gap, sampleRate)

	out := make([]int16, 0, count*len(beep)+(count-1)*len(gap))
	for i := 0; i < count; i++ {
		if i > 0 {
			out = append(out, gap...)
		}
		out = append(out, beep...)
	}
	return out
}

func interleave(mono []int16, channels int) []int16 {
	out := make([]int16, len(mono)*channels)
	for i, s := range mono {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = s
		}
	}
	return out
}

var _ Tones = (*ToneSynth)(nil)
