package spatial

import "github.com/teslashibe/go-echosight/pkg/detection"

// ObstacleConfig defines the walking corridor and minimum size of a
// blocking object, both as fractions of the frame.
type ObstacleConfig struct {
	CorridorMin  float64 `yaml:"corridor_min"`
	CorridorMax  float64 `yaml:"corridor_max"`
	MinAreaRatio float64 `yaml:"min_area_ratio"`
}

// DefaultObstacleConfig returns the middle 40% corridor with an 8% size gate.
func DefaultObstacleConfig() ObstacleConfig {
	return ObstacleConfig{
		CorridorMin:  0.3,
		CorridorMax:  0.7,
		MinAreaRatio: 0.08,
	}
}

// IsBlocking applies the default obstacle gates.
func IsBlocking(d *detection.Detection, frameWidth, frameHeight int) bool {
	return DefaultObstacleConfig().IsBlocking(d, frameWidth, frameHeight)
}

// IsBlocking reports whether the box is centered inside the corridor
// (bounds exclusive) and covers more than MinAreaRatio of the frame.
func (c ObstacleConfig) IsBlocking(d *detection.Detection, frameWidth, frameHeight int) bool {
	if d == nil || frameWidth <= 0 || frameHeight <= 0 {
		return false
	}

	w := float64(frameWidth)
	cx := d.Box.CenterX()
	inPath := cx > c.CorridorMin*w && cx < c.CorridorMax*w

	areaRatio := d.Box.Area() / (w * float64(frameHeight))
	bigEnough := areaRatio > c.MinAreaRatio

	return inPath && bigEnough
}
