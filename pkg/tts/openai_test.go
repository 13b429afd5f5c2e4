package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-echosight/pkg/tts"
)

func newSpeechServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := tts.NewOpenAI(); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var got map[string]any
	srv := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write(make([]byte, 480))
	})

	p, err := tts.NewOpenAI(
		tts.WithAPIKey("test-key"),
		tts.WithBaseURL(srv.URL+"/"),
		tts.WithVoice(tts.VoiceOnyx),
	)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "Chair is very near you")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if got["response_format"] != "pcm" {
		t.Errorf("expected pcm response format, got %v", got["response_format"])
	}
	if got["voice"] != tts.VoiceOnyx {
		t.Errorf("expected voice onyx, got %v", got["voice"])
	}
	if got["input"] != "Chair is very near you" {
		t.Errorf("unexpected input %v", got["input"])
	}
	if len(result.Audio) != 480 {
		t.Errorf("expected 480 bytes, got %d", len(result.Audio))
	}
	if result.Format.Encoding != tts.EncodingPCM24 {
		t.Errorf("expected pcm_24000, got %s", result.Format.Encoding)
	}
	if result.Duration != 10*time.Millisecond {
		t.Errorf("expected 10ms, got %v", result.Duration)
	}
	if p.VoiceID() != tts.VoiceOnyx {
		t.Errorf("unexpected voice %s", p.VoiceID())
	}
}

func TestOpenAIEmptyText(t *testing.T) {
	p, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL("http://127.0.0.1:1"))
	if _, err := p.Synthesize(context.Background(), "  "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestOpenAIRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"busy","code":"overloaded"}}`))
			return
		}
		w.Write(make([]byte, 96))
	})

	p, _ := tts.NewOpenAI(
		tts.WithAPIKey("k"),
		tts.WithBaseURL(srv.URL),
		tts.WithRetry(2, time.Millisecond),
	)

	result, err := p.Synthesize(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(result.Audio) != 96 {
		t.Errorf("expected 96 bytes, got %d", len(result.Audio))
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", hits.Load())
	}
}

func TestOpenAIDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","code":"invalid_api_key"}}`))
	})

	p, _ := tts.NewOpenAI(
		tts.WithAPIKey("k"),
		tts.WithBaseURL(srv.URL),
		tts.WithRetry(3, time.Millisecond),
	)

	_, err := p.Synthesize(context.Background(), "Hello")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsUnauthorized() || apiErr.Code != "invalid_api_key" || apiErr.Message != "bad key" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 request, got %d", hits.Load())
	}
}

func TestOpenAIHealth(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(int(status.Load()))
	})

	p, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL))
	if err := p.Health(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	status.Store(http.StatusForbidden)
	if err := p.Health(context.Background()); err == nil {
		t.Error("expected error on 403")
	}
}
