package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrClosed is returned by Capture after Close.
var ErrClosed = errors.New("camera: source closed")

// Frame is one captured image.
type Frame struct {
	JPEG     []byte
	Width    int
	Height   int
	Captured time.Time
}

// Source delivers frames on demand.
type Source interface {
	Capture(ctx context.Context) (Frame, error)
	Close() error
}

// Open creates the source selected by cfg.Backend.
func Open(cfg Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendGoCV, "":
		return OpenCapture(cfg, logger)
	case BackendStatic:
		return NewStaticFile(cfg.StaticPath)
	case BackendMock:
		return NewMock(Frame{Width: cfg.Width, Height: cfg.Height}), nil
	default:
		return nil, fmt.Errorf("unknown camera backend %q", cfg.Backend)
	}
}
