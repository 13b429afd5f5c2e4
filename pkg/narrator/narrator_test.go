package narrator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiServer(t *testing.T, handler http.HandlerFunc) Config {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL
	cfg.MaxRetries = 0
	return cfg
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestGeminiDescribe(t *testing.T) {
	frame := []byte{0xff, 0xd8, 0xff, 0xd9}

	var got generateRequest
	cfg := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[
			{"text":"It's a quiet office. "},{"text":"Two people sit to your left."}]}}]}`)
	})

	g, err := NewGemini(cfg, nil)
	require.NoError(t, err)

	text, err := g.Describe(context.Background(), frame)
	require.NoError(t, err)
	assert.Equal(t, "It's a quiet office. Two people sit to your left.", text)

	require.Len(t, got.Contents, 1)
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(frame), parts[0].InlineData.Data)
	assert.Equal(t, DefaultPrompt, parts[1].Text)
}

func TestGeminiAPIError(t *testing.T) {
	cfg := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden,
			`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	})

	g, err := NewGemini(cfg, nil)
	require.NoError(t, err)

	_, err = g.Describe(context.Background(), []byte{1})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", apiErr.Status)
	assert.Equal(t, "API key not valid", apiErr.Message)
	assert.False(t, apiErr.IsRetryable())
}

func TestGeminiRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	cfg := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, `{"error":{"code":503,"message":"overloaded"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"A busy street."}]}}]}`)
	})
	cfg.MaxRetries = 2

	g, err := NewGemini(cfg, nil)
	require.NoError(t, err)

	text, err := g.Describe(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "A busy street.", text)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGeminiNoCandidates(t *testing.T) {
	cfg := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[]}`)
	})

	g, err := NewGemini(cfg, nil)
	require.NoError(t, err)

	_, err = g.Describe(context.Background(), []byte{1})
	assert.ErrorIs(t, err, ErrNoDescription)
}

func TestGeminiEmptyImage(t *testing.T) {
	g, err := NewGemini(Config{APIKey: "k"}, nil)
	require.NoError(t, err)

	_, err = g.Describe(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
	assert.Equal(t, DefaultConfig().Model, g.cfg.Model)
}

func TestMock(t *testing.T) {
	m := &Mock{Description: "A calm park."}
	text, err := m.Describe(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "A calm park.", text)

	m.Err = errors.New("boom")
	_, err = m.Describe(context.Background(), []byte{1})
	assert.Error(t, err)
	assert.Equal(t, 2, m.Calls())
}
