// Package narrator produces spoken-style scene descriptions from a single
// camera frame using a multimodal model.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	ErrNoAPIKey      = errors.New("narrator: API key required")
	ErrEmptyImage    = errors.New("narrator: empty image")
	ErrNoDescription = errors.New("narrator: model returned no text")
)

// Narrator describes what is in front of the camera.
type Narrator interface {
	Describe(ctx context.Context, jpeg []byte) (string, error)
}

// DefaultPrompt asks for a short, plain description a friend would give.
const DefaultPrompt = "You are a calm, sighted friend standing beside me. " +
	"Start with the overall feel of the place: quiet, busy, focused or relaxed. " +
	"Mention only what helps me move or interact: who is close, roughly how far, " +
	"what they are doing and whether anyone seems to notice me. " +
	"Do not list objects, do not embellish and do not say 'I see' or 'there is'. " +
	"Keep colors minimal. Answer in two to five short sentences."

// Config holds narrator settings.
type Config struct {
	APIKey     string        `yaml:"-"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	Prompt     string        `yaml:"prompt"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// DefaultConfig returns defaults for the Gemini flash model.
func DefaultConfig() Config {
	return Config{
		Model:      "gemini-2.5-flash",
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		Prompt:     DefaultPrompt,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}
}

// APIError is a non-2xx reply from the model API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("narrator: API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("narrator: API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports a 429 or 5xx.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
