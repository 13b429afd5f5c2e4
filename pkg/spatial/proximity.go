package spatial

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-echosight/pkg/detection"
)

// Proximity is a coarse distance tier. The zero value is not a tier.
type Proximity int

const (
	ProximityUnknown Proximity = iota
	Far
	Mid
	Near
)

func (p Proximity) String() string {
	switch p {
	case Far:
		return "far"
	case Mid:
		return "mid"
	case Near:
		return "near"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the three tiers.
func (p Proximity) Valid() bool {
	return p >= Far && p <= Near
}

// ParseProximity parses "far", "mid" or "near".
func ParseProximity(s string) (Proximity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "far":
		return Far, nil
	case "mid":
		return Mid, nil
	case "near":
		return Near, nil
	}
	return ProximityUnknown, fmt.Errorf("invalid proximity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Proximity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so config files can
// name the fallback tier.
func (p *Proximity) UnmarshalText(b []byte) error {
	v, err := ParseProximity(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ProximityConfig holds the hybrid score weights and tier thresholds.
type ProximityConfig struct {
	AreaWeight   float64   `yaml:"area_weight"`
	BottomWeight float64   `yaml:"bottom_weight"`
	MidScore     float64   `yaml:"mid_score"`  // score >= this is at least Mid
	NearScore    float64   `yaml:"near_score"` // score >= this is Near
	Fallback     Proximity `yaml:"fallback"`   // tier for missing detection or bad frame size
}

// DefaultProximityConfig returns the 0.6 area / 0.4 ground-plane blend.
func DefaultProximityConfig() ProximityConfig {
	return ProximityConfig{
		AreaWeight:   0.6,
		BottomWeight: 0.4,
		MidScore:     0.15,
		NearScore:    0.35,
		Fallback:     Far,
	}
}

// CautiousProximityConfig treats unusable input as Near.
func CautiousProximityConfig() ProximityConfig {
	cfg := DefaultProximityConfig()
	cfg.Fallback = Near
	return cfg
}

// EstimateProximity buckets a box with the default configuration.
func EstimateProximity(d *detection.Detection, frameWidth, frameHeight int) Proximity {
	return DefaultProximityConfig().Estimate(d, frameWidth, frameHeight)
}

// Estimate buckets the box by a blend of its area ratio and how low its
// bottom edge sits in the frame.
func (c ProximityConfig) Estimate(d *detection.Detection, frameWidth, frameHeight int) Proximity {
	if d == nil || frameWidth <= 0 || frameHeight <= 0 {
		return c.fallback()
	}

	return c.bucket(c.Score(d, frameWidth, frameHeight))
}

// Score returns the raw closeness score. Callers must pass a valid
// detection and positive dimensions.
func (c ProximityConfig) Score(d *detection.Detection, frameWidth, frameHeight int) float64 {
	frameArea := float64(frameWidth) * float64(frameHeight)
	areaRatio := d.Box.Area() / frameArea
	bottomRatio := d.Box.Bottom / float64(frameHeight)
	return c.AreaWeight*areaRatio + c.BottomWeight*bottomRatio
}

func (c ProximityConfig) bucket(score float64) Proximity {
	switch {
	case score < c.MidScore:
		return Far
	case score < c.NearScore:
		return Mid
	default:
		return Near
	}
}

func (c ProximityConfig) fallback() Proximity {
	if !c.Fallback.Valid() {
		return Far
	}
	return c.Fallback
}

// EstimateProximityByHeight is the single-cue variant: box height over
// frame height with 0.25 and 0.5 thresholds.
func EstimateProximityByHeight(d *detection.Detection, frameHeight int) Proximity {
	if d == nil || frameHeight <= 0 {
		return Far
	}

	ratio := d.Box.Height() / float64(frameHeight)
	switch {
	case ratio < 0.25:
		return Far
	case ratio < 0.5:
		return Mid
	default:
		return Near
	}
}
