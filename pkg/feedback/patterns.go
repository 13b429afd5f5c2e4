package feedback

import (
	"time"

	"github.com/teslashibe/go-echosight/pkg/spatial"
)

// Pattern is a vibration waveform: alternating off and on durations,
// starting with an initial delay.
type Pattern []time.Duration

// Millis returns the pattern as integer milliseconds.
func (p Pattern) Millis() []int64 {
	out := make([]int64, len(p))
	for i, d := range p {
		out[i] = d.Milliseconds()
	}
	return out
}

// Pulses returns the number of on segments.
func (p Pattern) Pulses() int {
	return len(p) / 2
}

// Total returns the full length of the pattern.
func (p Pattern) Total() time.Duration {
	var sum time.Duration
	for _, d := range p {
		sum += d
	}
	return sum
}

func ms(v ...int) Pattern {
	p := make(Pattern, len(v))
	for i, n := range v {
		p[i] = time.Duration(n) * time.Millisecond
	}
	return p
}

// Cue is the haptic and audio signal for one proximity tier.
type Cue struct {
	Pattern Pattern
	Beeps   int
}

// DefaultCues returns one, two and three pulse cues for Far, Mid and Near.
func DefaultCues() map[spatial.Proximity]Cue {
	return map[spatial.Proximity]Cue{
		spatial.Far:  {Pattern: ms(0, 150), Beeps: 1},
		spatial.Mid:  {Pattern: ms(0, 300, 400, 300), Beeps: 2},
		spatial.Near: {Pattern: ms(0, 150, 100, 150, 100, 150), Beeps: 3},
	}
}
