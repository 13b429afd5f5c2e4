// Package speech turns short navigation messages into audio on a sink.
//
// A Channel plays at most one utterance at a time. Speaking again cuts off
// whatever is still playing.
package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-echosight/pkg/audioio"
	"github.com/teslashibe/go-echosight/pkg/tts"
)

// DefaultTimeout bounds synthesis plus playback of a single utterance.
const DefaultTimeout = 15 * time.Second

// Transcript receives a JSON event for every utterance started.
// *hub.Hub satisfies it.
type Transcript interface {
	BroadcastJSON(v any) error
}

// Event is broadcast on the transcript when an utterance starts.
type Event struct {
	Type string    `json:"type"` // "speech"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Stats counts utterances by result.
type Stats struct {
	Started     int64 `json:"started"`
	Completed   int64 `json:"completed"`
	Interrupted int64 `json:"interrupted"`
	Failed      int64 `json:"failed"`
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTranscript publishes every utterance to t.
func WithTranscript(t Transcript) Option {
	return func(c *Channel) {
		c.transcript = t
	}
}

// Channel synthesizes text with a tts.Provider and plays it on an
// audioio.Sink. The sink must already be started.
type Channel struct {
	provider   tts.Provider
	sink       audioio.Sink
	logger     *slog.Logger
	timeout    time.Duration
	transcript Transcript

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup

	speaking atomic.Bool

	started     atomic.Int64
	completed   atomic.Int64
	interrupted atomic.Int64
	failed      atomic.Int64
}

// NewChannel creates a speech channel.
func NewChannel(provider tts.Provider, sink audioio.Sink, opts ...Option) *Channel {
	c := &Channel{
		provider: provider,
		sink:     sink,
		logger:   slog.Default(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "speech")
	return c
}

// Speak starts saying text and returns immediately. Any utterance still
// pending or playing is discarded first. Blank text is ignored.
func (c *Channel) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.interruptLocked()

	c.gen++
	gen := c.gen
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.speaking.Store(true)
	c.wg.Add(1)
	c.mu.Unlock()

	c.started.Add(1)
	if c.transcript != nil {
		if err := c.transcript.BroadcastJSON(Event{Type: "speech", Text: text, At: time.Now()}); err != nil {
			c.logger.Debug("transcript broadcast failed", "error", err)
		}
	}

	go c.play(ctx, cancel, gen, done, text)
}

// IsSpeaking reports whether an utterance is being synthesized or played.
func (c *Channel) IsSpeaking() bool {
	return c.speaking.Load()
}

// Wait blocks until the current utterance, if any, has finished.
func (c *Channel) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cuts off the current utterance.
func (c *Channel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interruptLocked()
}

// Close stops playback and waits for the worker to exit.
// Speak is a no-op afterwards.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.interruptLocked()
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// Stats returns utterance counters.
func (c *Channel) Stats() Stats {
	return Stats{
		Started:     c.started.Load(),
		Completed:   c.completed.Load(),
		Interrupted: c.interrupted.Load(),
		Failed:      c.failed.Load(),
	}
}

func (c *Channel) interruptLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.gen++
	c.speaking.Store(false)
	if err := c.sink.Clear(); err != nil {
		c.logger.Warn("clear sink failed", "error", err)
	}
}

func (c *Channel) play(ctx context.Context, cancel context.CancelFunc, gen uint64, done chan struct{}, text string) {
	defer c.wg.Done()
	defer close(done)
	defer cancel()

	err := c.say(ctx, text)

	c.mu.Lock()
	current := c.gen == gen
	if current {
		c.cancel = nil
		c.speaking.Store(false)
	}
	c.mu.Unlock()

	switch {
	case !current:
		c.interrupted.Add(1)
		c.logger.Debug("utterance interrupted", "text", text)
	case err != nil:
		c.failed.Add(1)
		c.logger.Warn("utterance failed", "text", text, "error", err)
	default:
		c.completed.Add(1)
		c.logger.Debug("utterance played", "text", text)
	}
}

func (c *Channel) say(ctx context.Context, text string) error {
	result, err := c.provider.Synthesize(ctx, text)
	if err != nil {
		return err
	}

	var chunk audioio.AudioChunk
	chunk.FromBytes(result.Audio, result.Format.SampleRate, max(result.Format.Channels, 1))
	if err := c.sink.Write(ctx, chunk); err != nil {
		return err
	}
	return c.sink.Flush(ctx)
}
