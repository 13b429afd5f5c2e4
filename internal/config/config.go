// Package config loads go-echosight settings from a YAML file, a .env file
// and the process environment, in that order of increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-echosight/pkg/announce"
	"github.com/teslashibe/go-echosight/pkg/audioio"
	"github.com/teslashibe/go-echosight/pkg/camera"
	"github.com/teslashibe/go-echosight/pkg/detection"
	"github.com/teslashibe/go-echosight/pkg/feedback"
	"github.com/teslashibe/go-echosight/pkg/narrator"
	"github.com/teslashibe/go-echosight/pkg/pipeline"
	"github.com/teslashibe/go-echosight/pkg/semantic"
	"github.com/teslashibe/go-echosight/pkg/spatial"
	"github.com/teslashibe/go-echosight/pkg/stabilizer"
	"github.com/teslashibe/go-echosight/pkg/tts"
)

// Speech providers.
const (
	SpeechOpenAI = "openai"
	SpeechMock   = "mock"
)

// Error reports the first invalid setting.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// WebConfig controls the dashboard listener.
type WebConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// FeedbackConfig controls the proximity cues.
type FeedbackConfig struct {
	Haptics bool                `yaml:"haptics"`
	Tones   feedback.ToneConfig `yaml:"tones"`
}

// AnnounceConfig controls the spoken warnings.
type AnnounceConfig struct {
	Cooldown     time.Duration `yaml:"cooldown"`
	SayDirection bool          `yaml:"say_direction"`
}

// SpeechConfig selects the TTS provider.
type SpeechConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"-"`
	Voice    string        `yaml:"voice"`
	Model    string        `yaml:"model"`
	Speed    float64       `yaml:"speed"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Config is the full application configuration.
type Config struct {
	Log           LogConfig               `yaml:"log"`
	Web           WebConfig               `yaml:"web"`
	Camera        camera.Config           `yaml:"camera"`
	Detector      detection.Config        `yaml:"detector"`
	DetectTimeout time.Duration           `yaml:"detect_timeout"`
	Stabilizer    stabilizer.Config       `yaml:"stabilizer"`
	Proximity     spatial.ProximityConfig `yaml:"proximity"`
	Obstacle      spatial.ObstacleConfig  `yaml:"obstacle"`
	Semantic      semantic.Config         `yaml:"semantic"`
	Feedback      FeedbackConfig          `yaml:"feedback"`
	Announce      AnnounceConfig          `yaml:"announce"`
	Audio         audioio.Config          `yaml:"audio"`
	Speech        SpeechConfig            `yaml:"speech"`
	Narrator      narrator.Config         `yaml:"narrator"`
}

// Default returns the full tree of defaults.
func Default() *Config {
	return &Config{
		Log:           LogConfig{Level: "info"},
		Web:           WebConfig{Addr: ":8080"},
		Camera:        camera.DefaultConfig(),
		Detector:      detection.DefaultConfig(),
		DetectTimeout: time.Second,
		Stabilizer:    stabilizer.DefaultConfig(),
		Proximity:     spatial.DefaultProximityConfig(),
		Obstacle:      spatial.DefaultObstacleConfig(),
		Semantic:      semantic.DefaultConfig(),
		Feedback: FeedbackConfig{
			Haptics: true,
			Tones:   feedback.DefaultToneConfig(),
		},
		Announce: AnnounceConfig{
			Cooldown:     announce.DefaultCooldown,
			SayDirection: true,
		},
		Audio: audioio.DefaultConfig(),
		Speech: SpeechConfig{
			Provider: SpeechOpenAI,
			Voice:    tts.VoiceNova,
			Model:    tts.ModelTTS1,
			Speed:    1.1,
			Timeout:  10 * time.Second,
		},
		Narrator: narrator.DefaultConfig(),
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment.
// A missing file is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("ECHOSIGHT_ADDR", &c.Web.Addr)
	str("ECHOSIGHT_CAMERA", &c.Camera.Backend)
	str("ECHOSIGHT_CAMERA_DEVICE", &c.Camera.Device)
	str("ECHOSIGHT_DETECTOR", &c.Detector.Backend)
	str("ECHOSIGHT_MODEL", &c.Detector.ModelPath)
	str("ECHOSIGHT_REMOTE_URL", &c.Detector.RemoteURL)
	str("ECHOSIGHT_SPEECH", &c.Speech.Provider)
	str("OPENAI_API_KEY", &c.Speech.APIKey)
	str("GOOGLE_API_KEY", &c.Narrator.APIKey)
	str("GEMINI_API_KEY", &c.Narrator.APIKey)

	if v, ok := lookup("ECHOSIGHT_STABILIZER"); ok {
		if preset, found := stabilizer.Preset(v); found {
			c.Stabilizer = preset
		}
	}
	if v, ok := lookup("ECHOSIGHT_FRAMERATE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Camera.Framerate = n
		}
	}
	if v, ok := lookup("ECHOSIGHT_COOLDOWN"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Announce.Cooldown = d
		}
	}
}

// Validate checks every section and returns the first problem as *Error.
func (c *Config) Validate() error {
	if c.Web.Addr == "" {
		return &Error{"web.addr", "must not be empty"}
	}
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &Error{"camera", errs[0]}
	}

	switch c.Detector.Backend {
	case "", "yolo":
		if c.Detector.ModelPath == "" {
			return &Error{"detector.model_path", "required for the yolo backend"}
		}
	case "remote":
		if c.Detector.RemoteURL == "" {
			return &Error{"detector.remote_url", "required for the remote backend"}
		}
	case "mock":
	default:
		return &Error{"detector.backend", fmt.Sprintf("unknown backend %q", c.Detector.Backend)}
	}
	if c.DetectTimeout < 0 {
		return &Error{"detect_timeout", "must not be negative"}
	}

	if c.Stabilizer.MinConfidence < 0 || c.Stabilizer.MinConfidence > 1 {
		return &Error{"stabilizer.min_confidence", "must be between 0 and 1"}
	}
	if c.Stabilizer.Alpha < 0 || c.Stabilizer.Alpha > 1 {
		return &Error{"stabilizer.alpha", "must be between 0 and 1"}
	}

	if !c.Proximity.Fallback.Valid() {
		return &Error{"proximity.fallback", "must be FAR, MID or NEAR"}
	}
	if c.Proximity.MidScore >= c.Proximity.NearScore {
		return &Error{"proximity.mid_score", "must be below near_score"}
	}

	o := c.Obstacle
	if o.CorridorMin < 0 || o.CorridorMax > 1 || o.CorridorMin >= o.CorridorMax {
		return &Error{"obstacle", "corridor must satisfy 0 <= corridor_min < corridor_max <= 1"}
	}
	if o.MinAreaRatio < 0 || o.MinAreaRatio > 1 {
		return &Error{"obstacle.min_area_ratio", "must be between 0 and 1"}
	}

	if c.Announce.Cooldown < 0 {
		return &Error{"announce.cooldown", "must not be negative"}
	}
	if err := c.Audio.Validate(); err != nil {
		return &Error{"audio", err.Error()}
	}
	if c.Feedback.Tones.Frequency <= 0 || c.Feedback.Tones.Duration <= 0 {
		return &Error{"feedback.tones", "frequency and duration must be positive"}
	}

	switch c.Speech.Provider {
	case SpeechOpenAI, SpeechMock:
	default:
		return &Error{"speech.provider", fmt.Sprintf("unknown provider %q", c.Speech.Provider)}
	}
	return nil
}

// Pipeline returns the analyzer settings.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Stabilizer:    c.Stabilizer,
		Proximity:     c.Proximity,
		Obstacle:      c.Obstacle,
		Semantic:      c.Semantic,
		Cooldown:      c.Announce.Cooldown,
		SayDirection:  c.Announce.SayDirection,
		DetectTimeout: c.DetectTimeout,
	}
}

// TTSOptions returns provider options for the configured speech settings.
func (c *Config) TTSOptions() []tts.Option {
	return []tts.Option{
		tts.WithAPIKey(c.Speech.APIKey),
		tts.WithVoice(c.Speech.Voice),
		tts.WithModel(c.Speech.Model),
		tts.WithSpeed(c.Speech.Speed),
		tts.WithTimeout(c.Speech.Timeout),
	}
}
