// Package camera provides frame sources for the navigation loop and
// runtime-configurable capture settings.
package camera

// Backend names a frame source implementation.
const (
	BackendGoCV   = "gocv"   // local webcam or video file through OpenCV
	BackendStatic = "static" // a single JPEG repeated, for demos
	BackendMock   = "mock"
)

// Config holds all camera configuration parameters.
// Capture settings can be modified via the camera API at runtime.
type Config struct {
	Backend string `yaml:"backend" json:"backend"`

	// Device is a camera index ("0") or a file/stream URL.
	Device string `yaml:"device" json:"device"`

	// StaticPath is the JPEG served by the static backend.
	StaticPath string `yaml:"static_path" json:"static_path"`

	// === Resolution ===
	Width     int `yaml:"width" json:"width"`         // Frame width in pixels
	Height    int `yaml:"height" json:"height"`       // Frame height in pixels
	Framerate int `yaml:"framerate" json:"framerate"` // Frames analyzed per second
	Quality   int `yaml:"quality" json:"quality"`     // JPEG quality 1-100
}

// Capture limits
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 30
)

// DefaultConfig returns the recommended configuration.
// 640x480 at 5 fps keeps CPU inference under the frame interval.
func DefaultConfig() Config {
	return Config{
		Backend:   BackendGoCV,
		Device:    "0",
		Width:     640,
		Height:    480,
		Framerate: 5,
		Quality:   80,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Backend {
	case BackendGoCV, BackendStatic, BackendMock:
	default:
		errors = append(errors, "backend must be gocv, static, or mock")
	}

	if c.Backend == BackendStatic && c.StaticPath == "" {
		errors = append(errors, "static_path is required for the static backend")
	}

	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 30")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}

// Capabilities returns the capture limits.
func Capabilities() map[string]any {
	return map[string]any{
		"backends":      []string{BackendGoCV, BackendStatic, BackendMock},
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"presets":       PresetNames(),
	}
}
