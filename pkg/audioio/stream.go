package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/hraban/opus.v2"
)

// maxPacketBytes bounds a single opus packet.
const maxPacketBytes = 4000

// StreamSink encodes PCM into opus frames of Config.BufferDuration and
// broadcasts each packet to listening clients. An empty binary message
// tells clients to drop anything still queued.
type StreamSink struct {
	cfg    Config
	out    Broadcaster
	logger *slog.Logger
	enc    *opus.Encoder

	mu        sync.Mutex
	running   bool
	closed    bool
	pending   []int16
	playUntil time.Time     // when the last sent packet finishes playing
	interrupt chan struct{} // closed by Clear to wake Flush

	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
	packetsSent    atomic.Int64
}

// NewStreamSink creates an opus streaming sink.
func NewStreamSink(cfg Config, out Broadcaster, logger *slog.Logger) (*StreamSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	enc, err := opus.NewEncoder(cfg.SampleRate, cfg.Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	if cfg.Bitrate > 0 {
		if err := enc.SetBitrate(cfg.Bitrate); err != nil {
			return nil, fmt.Errorf("set opus bitrate: %w", err)
		}
	}

	return &StreamSink{
		cfg:       cfg,
		out:       out,
		logger:    logger.With("component", "audioio.stream"),
		enc:       enc,
		interrupt: make(chan struct{}),
	}, nil
}

// Start begins accepting audio.
func (s *StreamSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	s.running = true
	return nil
}

// Stop halts audio acceptance.
func (s *StreamSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Write encodes every whole frame in chunk and keeps the remainder.
func (s *StreamSink) Write(ctx context.Context, chunk AudioChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.running {
		return io.ErrClosedPipe
	}

	samples := chunk.Samples
	if chunk.SampleRate > 0 && chunk.SampleRate != s.cfg.SampleRate {
		samples = Resample(samples, chunk.SampleRate, s.cfg.SampleRate)
	}

	s.pending = append(s.pending, samples...)
	s.chunksWritten.Add(1)
	s.samplesWritten.Add(int64(len(samples)))

	return s.drainLocked(false)
}

// Flush pads and sends the last partial frame, then waits until the
// client has had time to play everything. Clear cuts the wait short.
func (s *StreamSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	if err := s.drainLocked(true); err != nil {
		s.mu.Unlock()
		return err
	}
	wait := time.Until(s.playUntil)
	interrupt := s.interrupt
	s.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-interrupt:
		return nil
	case <-timer.C:
		return nil
	}
}

// Clear drops pending samples and tells clients to stop playback.
func (s *StreamSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = s.pending[:0]
	s.playUntil = time.Time{}
	close(s.interrupt)
	s.interrupt = make(chan struct{})

	s.out.BroadcastBinary([]byte{})
	return nil
}

func (s *StreamSink) drainLocked(pad bool) error {
	frame := s.cfg.BufferSize() * s.cfg.Channels
	if frame <= 0 {
		return fmt.Errorf("invalid frame size %d", frame)
	}

	if pad && len(s.pending)%frame != 0 {
		s.pending = append(s.pending, make([]int16, frame-len(s.pending)%frame)...)
	}

	buf := make([]byte, maxPacketBytes)
	sent := 0
	for len(s.pending)-sent >= frame {
		n, err := s.enc.Encode(s.pending[sent:sent+frame], buf)
		if err != nil {
			s.pending = s.pending[:0]
			return fmt.Errorf("opus encode: %w", err)
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])
		s.out.BroadcastBinary(packet)
		s.packetsSent.Add(1)

		start := time.Now()
		if s.playUntil.After(start) {
			start = s.playUntil
		}
		s.playUntil = start.Add(s.cfg.BufferDuration)

		sent += frame
	}

	s.pending = append(s.pending[:0], s.pending[sent:]...)
	return nil
}

// Config returns the audio configuration.
func (s *StreamSink) Config() Config {
	return s.cfg
}

// Name returns "stream".
func (s *StreamSink) Name() string {
	return "stream"
}

// Close releases resources.
func (s *StreamSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.running = false
	s.pending = nil
	return nil
}

// Stats returns sink statistics.
func (s *StreamSink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	buffered := int64(len(s.pending))
	s.mu.Unlock()

	return SinkStats{
		ChunksWritten:   s.chunksWritten.Load(),
		SamplesWritten:  s.samplesWritten.Load(),
		PacketsSent:     s.packetsSent.Load(),
		Running:         running,
		Backend:         "stream",
		BufferedSamples: buffered,
	}
}

var _ SinkWithStats = (*StreamSink)(nil)
