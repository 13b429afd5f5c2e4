package pipeline

import (
	"time"

	"github.com/teslashibe/go-echosight/pkg/detection"
	"github.com/teslashibe/go-echosight/pkg/semantic"
	"github.com/teslashibe/go-echosight/pkg/spatial"
)

// Outcome is where a frame's processing stopped.
type Outcome int

const (
	OutcomeSkippedBusy  Outcome = iota // speech channel busy, nothing detected
	OutcomeNoDetections                // detector returned nothing (or failed)
	OutcomeUnstable                    // no confirmed object yet
	OutcomeIgnored                     // label is ignorable or free space
	OutcomeNotBlocking                 // object outside the path or too small
	OutcomeCooldown                    // message suppressed as a repeat
	OutcomeSpoken                      // announcement handed to speech
	OutcomeError                       // recovered panic
)

var outcomeNames = [...]string{
	OutcomeSkippedBusy:  "skipped_busy",
	OutcomeNoDetections: "no_detections",
	OutcomeUnstable:     "unstable",
	OutcomeIgnored:      "ignored",
	OutcomeNotBlocking:  "not_blocking",
	OutcomeCooldown:     "cooldown",
	OutcomeSpoken:       "spoken",
	OutcomeError:        "error",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Decision describes the last processed frame for the dashboard.
type Decision struct {
	SessionID  string               `json:"session_id"`
	Outcome    Outcome              `json:"outcome"`
	Candidates int                  `json:"candidates"`
	Object     *detection.Detection `json:"object,omitempty"`
	Direction  string               `json:"direction,omitempty"`
	Proximity  string               `json:"proximity,omitempty"`
	Category   string               `json:"category,omitempty"`
	Blocking   bool                 `json:"blocking"`
	Message    string               `json:"message,omitempty"`
	Latency    time.Duration        `json:"latency_ns"`
	At         time.Time            `json:"at"`
}

func (d *Decision) setObject(obj detection.Detection, dir spatial.Direction, prox spatial.Proximity) {
	d.Object = &obj
	d.Direction = dir.String()
	d.Proximity = prox.String()
}

func (d *Decision) setCategory(t semantic.Type) {
	d.Category = t.String()
}
