package pipeline

import (
	"time"

	"github.com/teslashibe/go-echosight/pkg/announce"
	"github.com/teslashibe/go-echosight/pkg/semantic"
	"github.com/teslashibe/go-echosight/pkg/spatial"
	"github.com/teslashibe/go-echosight/pkg/stabilizer"
)

// Config gathers the tunables of every stage.
type Config struct {
	Stabilizer stabilizer.Config
	Proximity  spatial.ProximityConfig
	Obstacle   spatial.ObstacleConfig
	Semantic   semantic.Config

	Cooldown      time.Duration // repeat suppression for identical messages
	SayDirection  bool          // append "on your left/right"
	DetectTimeout time.Duration // bound on one detector call, 0 = none
}

// DefaultConfig returns defaults for every stage.
func DefaultConfig() Config {
	return Config{
		Stabilizer:   stabilizer.DefaultConfig(),
		Proximity:    spatial.DefaultProximityConfig(),
		Obstacle:     spatial.DefaultObstacleConfig(),
		Semantic:     semantic.DefaultConfig(),
		Cooldown:     announce.DefaultCooldown,
		SayDirection: true,
	}
}
