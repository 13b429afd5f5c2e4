package camera

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// CaptureSource reads frames from a webcam or video stream via OpenCV
// and encodes them as JPEG.
type CaptureSource struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	img    gocv.Mat
	closed bool
}

// OpenCapture opens cfg.Device. A numeric device is a camera index.
func OpenCapture(cfg Config, logger *slog.Logger) (*CaptureSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var device any = cfg.Device
	if idx, err := strconv.Atoi(cfg.Device); err == nil {
		device = idx
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %q: %w", cfg.Device, err)
	}

	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	logger = logger.With("component", "camera")
	logger.Info("camera opened",
		"device", cfg.Device,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
	)

	return &CaptureSource{
		cfg:    cfg,
		logger: logger,
		vc:     vc,
		img:    gocv.NewMat(),
	}, nil
}

// Capture grabs the next frame.
func (c *CaptureSource) Capture(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Frame{}, ErrClosed
	}

	if ok := c.vc.Read(&c.img); !ok || c.img.Empty() {
		return Frame{}, fmt.Errorf("camera %q: no frame", c.cfg.Device)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.img, []int{gocv.IMWriteJpegQuality, c.cfg.Quality})
	if err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	return Frame{
		JPEG:     data,
		Width:    c.img.Cols(),
		Height:   c.img.Rows(),
		Captured: time.Now(),
	}, nil
}

// Close releases the device.
func (c *CaptureSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.img.Close()
	return c.vc.Close()
}

var _ Source = (*CaptureSource)(nil)
