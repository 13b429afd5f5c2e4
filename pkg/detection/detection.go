// Package detection defines the raw per-frame object reports fed into the
// navigation pipeline and the detector backends that produce them.
package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrEmptyImage is returned when a frame cannot be decoded into pixels.
var ErrEmptyImage = errors.New("detection: empty image")

// ErrNoRemoteURL is returned when the remote backend has no endpoint.
var ErrNoRemoteURL = errors.New("detection: remote_url not set")

// Box is an axis-aligned rectangle in frame-pixel coordinates.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the box width, or 0 for an inverted box.
func (b Box) Width() float64 {
	if b.Right < b.Left {
		return 0
	}
	return b.Right - b.Left
}

// Height returns the box height, or 0 for an inverted box.
func (b Box) Height() float64 {
	if b.Bottom < b.Top {
		return 0
	}
	return b.Bottom - b.Top
}

// Area returns width × height.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// CenterX returns the horizontal center of the box.
func (b Box) CenterX() float64 {
	return (b.Left + b.Right) / 2
}

// CenterY returns the vertical center of the box.
func (b Box) CenterY() float64 {
	return (b.Top + b.Bottom) / 2
}

// Detection is one candidate object reported for a single frame.
// Detections carry no identity across frames.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Detector is the interface for object detection backends.
type Detector interface {
	// Detect finds objects in the JPEG image. Boxes are in the pixel
	// space of the decoded image.
	Detect(ctx context.Context, jpeg []byte) ([]Detection, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	Backend          string   `yaml:"backend"`           // "yolo", "remote" or "mock"
	ModelPath        string   `yaml:"model_path"`        // Path to ONNX model
	Labels           []string `yaml:"labels"`            // Class names, defaults to COCO
	ConfidenceThresh float32  `yaml:"confidence_thresh"` // Backend-side pre-filter
	NMSThresh        float32  `yaml:"nms_thresh"`
	InputWidth       int      `yaml:"input_width"`
	InputHeight      int      `yaml:"input_height"`
	RemoteURL        string   `yaml:"remote_url"` // ws:// endpoint for the remote backend
}

// DefaultConfig returns production defaults for YOLOv8n.
// The backend threshold is kept below the stabilizer's so weak boxes still
// reach the overlay.
func DefaultConfig() Config {
	return Config{
		Backend:          "yolo",
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.35,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// New creates the detector selected by cfg.Backend.
func New(cfg Config, logger *slog.Logger) (Detector, error) {
	switch cfg.Backend {
	case "", "yolo":
		return NewYOLO(cfg, logger)
	case "remote":
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("remote detector: %w", ErrNoRemoteURL)
		}
		return NewRemote(cfg.RemoteURL, 0, logger), nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
}
