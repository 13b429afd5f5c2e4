package command

import (
	"errors"
	"log/slog"
	"sync/atomic"
)

// ErrQueueFull is returned when the consumer is not keeping up.
var ErrQueueFull = errors.New("command: queue full")

// DefaultQueueSize is the buffer used when NewQueue gets size <= 0.
const DefaultQueueSize = 8

// Queue buffers commands between producers (HTTP handlers, recognizers)
// and the single application loop reading C.
type Queue struct {
	ch      chan Command
	logger  *slog.Logger
	dropped atomic.Int64
}

// NewQueue creates a queue holding up to size pending commands.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		ch:     make(chan Command, size),
		logger: logger.With("component", "command"),
	}
}

// C returns the channel the application loop reads from.
func (q *Queue) C() <-chan Command {
	return q.ch
}

// Send enqueues cmd without blocking.
func (q *Queue) Send(cmd Command) error {
	if cmd == None {
		return ErrUnrecognized
	}
	select {
	case q.ch <- cmd:
		q.logger.Debug("command queued", "command", cmd)
		return nil
	default:
		q.dropped.Add(1)
		q.logger.Warn("command dropped", "command", cmd)
		return ErrQueueFull
	}
}

// Submit parses a transcript and enqueues the result.
func (q *Queue) Submit(transcript string) (Command, error) {
	cmd, err := Parse(transcript)
	if err != nil {
		q.logger.Debug("no command in transcript", "transcript", transcript)
		return None, err
	}
	return cmd, q.Send(cmd)
}

// Dropped returns how many commands were rejected because the queue was full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}
