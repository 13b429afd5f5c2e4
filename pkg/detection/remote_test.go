package detection

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inferenceServer answers every frame with fixed detections and records
// the decoded frames it received.
func inferenceServer(t *testing.T, reply remoteResponse, frames chan<- []byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(string(msg))
			if err != nil {
				return
			}
			if frames != nil {
				frames <- raw
			}
			data, _ := json.Marshal(reply)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestRemoteDetector_Detect(t *testing.T) {
	frames := make(chan []byte, 4)
	reply := remoteResponse{Detections: []Detection{
		{Label: "person", Confidence: 0.92, Box: Box{Left: 100, Top: 100, Right: 400, Bottom: 800}},
	}}
	srv := inferenceServer(t, reply, frames)
	defer srv.Close()

	d := NewRemote(wsURL(srv), time.Second, nil)
	defer d.Close()

	got, err := d.Detect(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "person", got[0].Label)
	assert.InDelta(t, 0.92, got[0].Confidence, 1e-9)
	assert.Equal(t, 400.0, got[0].Box.Right)
	assert.Equal(t, []byte("jpeg-bytes"), <-frames)

	// Second call reuses the connection.
	_, err = d.Detect(context.Background(), []byte("next"))
	require.NoError(t, err)
	assert.Equal(t, []byte("next"), <-frames)
}

func TestRemoteDetector_ServerError(t *testing.T) {
	srv := inferenceServer(t, remoteResponse{Error: "model not loaded"}, nil)
	defer srv.Close()

	d := NewRemote(wsURL(srv), time.Second, nil)
	defer d.Close()

	_, err := d.Detect(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestRemoteDetector_DialFailure(t *testing.T) {
	d := NewRemote("ws://127.0.0.1:1/detect", 200*time.Millisecond, nil)
	defer d.Close()

	_, err := d.Detect(context.Background(), []byte("x"))
	assert.Error(t, err)
}

func TestRemoteDetector_Closed(t *testing.T) {
	srv := inferenceServer(t, remoteResponse{}, nil)
	defer srv.Close()

	d := NewRemote(wsURL(srv), time.Second, nil)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err := d.Detect(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrRemoteClosed)
}
