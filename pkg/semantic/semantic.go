// Package semantic maps detector labels to coarse navigation categories.
package semantic

import "strings"

// Type is the coarse category of a label.
type Type int

const (
	Obstacle Type = iota
	Ignore
	FreeSpace
)

func (t Type) String() string {
	switch t {
	case Obstacle:
		return "obstacle"
	case Ignore:
		return "ignore"
	case FreeSpace:
		return "free_space"
	default:
		return "unknown"
	}
}

// Config lists the label sets. Obstacles are checked first, so a label in
// both Obstacles and Ignore is an obstacle.
type Config struct {
	Obstacles []string `yaml:"obstacles"`
	Ignore    []string `yaml:"ignore"`
	FreeSpace []string `yaml:"free_space"`
}

// DefaultConfig returns the label sets tuned for the COCO model.
func DefaultConfig() Config {
	return Config{
		Obstacles: []string{"person", "bench", "chair", "bottle", "book", "laptop"},
		Ignore: []string{
			"bird", "cat", "dog",
			"cup", "book", "fork", "knife", "spoon", "banana", "apple",
			"couch", "bed",
			"car", "bus", "truck", "motorcycle", "bicycle",
			"potted plant", "fire hydrant", "stop sign", "traffic light", "parking meter",
		},
		FreeSpace: []string{"floor", "road", "sidewalk", "path"},
	}
}

// Classifier looks labels up in fixed sets. It is safe for concurrent use
// once built.
type Classifier struct {
	obstacles map[string]struct{}
	ignore    map[string]struct{}
	freeSpace map[string]struct{}
}

// New builds a classifier from cfg.
func New(cfg Config) *Classifier {
	return &Classifier{
		obstacles: toSet(cfg.Obstacles),
		ignore:    toSet(cfg.Ignore),
		freeSpace: toSet(cfg.FreeSpace),
	}
}

// NewDefault builds a classifier with DefaultConfig.
func NewDefault() *Classifier {
	return New(DefaultConfig())
}

// Classify returns the category for label. Empty labels are ignored and
// labels in no set are treated as obstacles.
func (c *Classifier) Classify(label string) Type {
	key := normalize(label)
	if key == "" {
		return Ignore
	}
	if _, ok := c.obstacles[key]; ok {
		return Obstacle
	}
	if _, ok := c.ignore[key]; ok {
		return Ignore
	}
	if _, ok := c.freeSpace[key]; ok {
		return FreeSpace
	}
	return Obstacle
}

func toSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if k := normalize(l); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
