// Package spatial derives coarse bearing, distance and path-blocking
// judgements from a single box and the frame dimensions.
package spatial

import "github.com/teslashibe/go-echosight/pkg/detection"

// Direction is a coarse horizontal bearing.
type Direction int

const (
	Center Direction = iota
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "center"
	}
}

// EstimateDirection splits the frame into thirds by the box's horizontal
// center. A missing detection or non-positive width yields Center.
func EstimateDirection(d *detection.Detection, frameWidth int) Direction {
	if d == nil || frameWidth <= 0 {
		return Center
	}

	w := float64(frameWidth)
	cx := d.Box.CenterX()
	switch {
	case cx < w/3:
		return Left
	case cx > 2*w/3:
		return Right
	default:
		return Center
	}
}
