package detection

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrRemoteClosed is returned by a RemoteDetector after Close.
var ErrRemoteClosed = errors.New("detection: remote detector closed")

// remoteResponse is the JSON reply from an inference server.
type remoteResponse struct {
	Detections []Detection `json:"detections"`
	Error      string      `json:"error,omitempty"`
}

// RemoteDetector offloads inference to a websocket inference server.
// Each frame is sent as a base64 JPEG text message and answered with a
// single JSON message. The connection is dialed lazily and redialed after
// any failure.
type RemoteDetector struct {
	url     string
	timeout time.Duration
	dialer  websocket.Dialer
	logger  *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewRemote creates a detector for the given ws:// or wss:// URL.
func NewRemote(url string, timeout time.Duration, logger *slog.Logger) *RemoteDetector {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RemoteDetector{
		url:     url,
		timeout: timeout,
		dialer:  websocket.Dialer{HandshakeTimeout: timeout},
		logger:  logger.With("component", "detection.remote"),
	}
}

// Detect sends one frame and waits for its detections.
func (r *RemoteDetector) Detect(ctx context.Context, jpeg []byte) ([]Detection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRemoteClosed
	}

	conn, err := r.connLocked(ctx)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(r.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn.SetWriteDeadline(deadline)
	payload := base64.StdEncoding.EncodeToString(jpeg)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		r.dropLocked()
		return nil, fmt.Errorf("send frame: %w", err)
	}

	conn.SetReadDeadline(deadline)
	_, msg, err := conn.ReadMessage()
	if err != nil {
		r.dropLocked()
		return nil, fmt.Errorf("read detections: %w", err)
	}

	var resp remoteResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("inference server: %s", resp.Error)
	}

	return resp.Detections, nil
}

func (r *RemoteDetector) connLocked(ctx context.Context) (*websocket.Conn, error) {
	if r.conn != nil {
		return r.conn, nil
	}

	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", r.url, err)
	}
	r.logger.Info("connected to inference server", "url", r.url)
	r.conn = conn
	return conn, nil
}

func (r *RemoteDetector) dropLocked() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

// Close closes the connection. Further Detect calls fail.
func (r *RemoteDetector) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.conn == nil {
		return nil
	}
	r.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	err := r.conn.Close()
	r.conn = nil
	return err
}

var _ Detector = (*RemoteDetector)(nil)
