// Package stabilizer turns jittery per-frame detections into at most one
// confirmed, positionally smoothed object per frame.
package stabilizer

import (
	"math"

	"github.com/teslashibe/go-echosight/pkg/detection"
)

// Stabilizer keeps a short history of per-frame winners and an EMA of the
// confirmed object's box. It is not safe for concurrent use; a
// pipeline session owns one instance.
type Stabilizer struct {
	cfg      Config
	history  []detection.Detection // oldest first, len <= HistorySize
	smoothed *detection.Box
	anchor   detection.Detection // raw winner behind smoothed
}

// New creates a Stabilizer. Zero window, tolerance and alpha fields take
// their defaults; MinConfidence is used as given, so 0 accepts every
// candidate.
func New(cfg Config) *Stabilizer {
	cfg = cfg.normalized()
	return &Stabilizer{
		cfg:     cfg,
		history: make([]detection.Detection, 0, cfg.HistorySize),
	}
}

// Filter selects the frame's best candidate and reports it once it has
// been seen consistently. The returned detection carries the raw label
// and confidence with the smoothed box.
func (s *Stabilizer) Filter(candidates []detection.Detection) (detection.Detection, bool) {
	winner, ok := s.pick(candidates)
	if !ok {
		// A reappearing object must not inherit a stale position.
		s.smoothed = nil
		return detection.Detection{}, false
	}

	s.push(winner)

	if s.consistentCount(winner) < s.cfg.MinConsistent {
		return detection.Detection{}, false
	}

	box := s.smooth(winner)
	return detection.Detection{
		Label:      winner.Label,
		Confidence: winner.Confidence,
		Box:        box,
	}, true
}

// Reset drops the history and the smoothed box.
func (s *Stabilizer) Reset() {
	s.history = s.history[:0]
	s.smoothed = nil
}

// Smoothed returns the current smoothed box, if any.
func (s *Stabilizer) Smoothed() (detection.Box, bool) {
	if s.smoothed == nil {
		return detection.Box{}, false
	}
	return *s.smoothed, true
}

// HistoryLen returns the number of winners in the window.
func (s *Stabilizer) HistoryLen() int {
	return len(s.history)
}

// pick returns the qualifying candidate with the largest area.
// Ties keep the first one seen.
func (s *Stabilizer) pick(candidates []detection.Detection) (detection.Detection, bool) {
	var best detection.Detection
	bestArea := -1.0
	found := false

	for _, c := range candidates {
		if c.Confidence < s.cfg.MinConfidence || math.IsNaN(c.Confidence) {
			continue
		}
		area := c.Box.Area()
		if math.IsNaN(area) {
			continue
		}
		if area > bestArea {
			best = c
			bestArea = area
			found = true
		}
	}

	return best, found
}

func (s *Stabilizer) push(d detection.Detection) {
	if len(s.history) == s.cfg.HistorySize {
		copy(s.history, s.history[1:])
		s.history = s.history[:len(s.history)-1]
	}
	s.history = append(s.history, d)
}

// consistentCount counts history entries that look like the same object
// as d. The winner itself is always in the history.
func (s *Stabilizer) consistentCount(d detection.Detection) int {
	n := 0
	for _, h := range s.history {
		if s.sameObject(h, d) {
			n++
		}
	}
	return n
}

// sameObject reports whether a looks like b: same label and a center
// within b's tolerance.
func (s *Stabilizer) sameObject(a, b detection.Detection) bool {
	tol := s.cfg.CenterTolerancePx
	if tol <= 0 {
		tol = s.cfg.CenterToleranceRatio * b.Box.Width()
	}
	return a.Label == b.Label && math.Abs(a.Box.CenterX()-b.Box.CenterX()) < tol
}

// smooth blends the winner into the running box. A winner that is not
// the object behind the running box starts over from its raw box.
func (s *Stabilizer) smooth(winner detection.Detection) detection.Box {
	cur := winner.Box
	if s.smoothed == nil || !s.sameObject(s.anchor, winner) {
		b := cur
		s.smoothed = &b
		s.anchor = winner
		return b
	}
	s.anchor = winner

	a := s.cfg.Alpha
	prev := *s.smoothed
	next := detection.Box{
		Left:   a*cur.Left + (1-a)*prev.Left,
		Top:    a*cur.Top + (1-a)*prev.Top,
		Right:  a*cur.Right + (1-a)*prev.Right,
		Bottom: a*cur.Bottom + (1-a)*prev.Bottom,
	}
	s.smoothed = &next
	return next
}
