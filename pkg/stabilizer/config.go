package stabilizer

// Config holds the tunables for temporal filtering.
type Config struct {
	MinConfidence float64 `yaml:"min_confidence"` // Drop candidates below this
	HistorySize   int     `yaml:"history_size"`   // Rolling window of raw winners
	MinConsistent int     `yaml:"min_consistent"` // Same-object hits needed in the window

	// Same-object center tolerance. A positive pixel value wins; otherwise
	// the ratio of the winner's own box width is used.
	CenterTolerancePx    float64 `yaml:"center_tolerance_px"`
	CenterToleranceRatio float64 `yaml:"center_tolerance_ratio"`

	Alpha float64 `yaml:"alpha"` // EMA weight of the new box (0-1, lower = steadier)
}

// DefaultConfig returns the recommended configuration: 3 of the last 5
// frames must agree before an object is reported.
func DefaultConfig() Config {
	return Config{
		MinConfidence:        0.5,
		HistorySize:          5,
		MinConsistent:        3,
		CenterToleranceRatio: 0.2,
		Alpha:                0.25,
	}
}

// ResponsiveConfig confirms objects after 2 frames and follows movement
// more closely, at the cost of more flicker.
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.MinConsistent = 2
	cfg.Alpha = 0.5
	return cfg
}

// Preset returns the named configuration, "default" or "responsive".
func Preset(name string) (Config, bool) {
	switch name {
	case "default":
		return DefaultConfig(), true
	case "responsive":
		return ResponsiveConfig(), true
	}
	return Config{}, false
}

// normalized fills zero or out-of-range fields with defaults.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	if c.MinConsistent <= 0 {
		c.MinConsistent = def.MinConsistent
	}
	if c.MinConsistent > c.HistorySize {
		c.MinConsistent = c.HistorySize
	}
	if c.CenterTolerancePx <= 0 && c.CenterToleranceRatio <= 0 {
		c.CenterToleranceRatio = def.CenterToleranceRatio
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = def.Alpha
	}
	return c
}
