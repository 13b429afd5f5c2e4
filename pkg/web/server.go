// Package web serves the navigation dashboard: a small JSON API, live
// websocket feeds for the overlay, status, feedback and audio, and the
// Prometheus scrape endpoint.
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/teslashibe/go-echosight/pkg/camera"
	"github.com/teslashibe/go-echosight/pkg/command"
	"github.com/teslashibe/go-echosight/pkg/detection"
	"github.com/teslashibe/go-echosight/pkg/hub"
	"github.com/teslashibe/go-echosight/pkg/pipeline"
)

// Status is the dashboard view of the navigator.
type Status struct {
	Navigating    bool               `json:"navigating"`
	SessionID     string             `json:"session_id,omitempty"`
	Speaking      bool               `json:"speaking"`
	NarratorReady bool               `json:"narrator_ready"`
	Detector      string             `json:"detector"`
	Camera        camera.Config      `json:"camera"`
	Last          *pipeline.Decision `json:"last,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
}

// Navigator reports the current navigation state.
type Navigator interface {
	Status() Status
}

// Commander accepts navigation commands. *command.Queue satisfies it.
type Commander interface {
	Send(cmd command.Command) error
	Submit(transcript string) (command.Command, error)
}

// Event wraps every JSON message sent on the status feed.
type Event struct {
	Type string `json:"type"` // "status" or "decision"
	Data any    `json:"data"`
}

// OverlayEvent carries the raw detections of one frame.
type OverlayEvent struct {
	Type       string                `json:"type"` // "overlay"
	Detections []detection.Detection `json:"detections"`
	At         time.Time             `json:"at"`
}

// Options configures a Server. Navigator and Commands are required.
type Options struct {
	Addr      string
	Navigator Navigator
	Commands  Commander
	Camera    *camera.Manager
	Gatherer  prometheus.Gatherer
	StaticDir string
	Logger    *slog.Logger
}

// Server is the web dashboard server.
type Server struct {
	app    *fiber.App
	addr   string
	opts   Options
	logger *slog.Logger

	overlayHub  *hub.Hub
	statusHub   *hub.Hub
	feedbackHub *hub.Hub
	speechHub   *hub.Hub
	tonesHub    *hub.Hub

	overlayMu   sync.RWMutex
	lastOverlay OverlayEvent

	startOnce sync.Once
}

// NewServer builds the fiber app and its hubs. Nothing listens until Start.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	s := &Server{
		addr:        opts.Addr,
		opts:        opts,
		logger:      logger.With("component", "web"),
		overlayHub:  hub.New("overlay", logger),
		statusHub:   hub.New("status", logger),
		feedbackHub: hub.New("feedback", logger),
		speechHub:   hub.New("speech", logger),
		tonesHub:    hub.New("tones", logger),
		lastOverlay: OverlayEvent{Type: "overlay", Detections: []detection.Detection{}},
	}

	app := fiber.New(fiber.Config{
		AppName:               "EchoSight",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	s.registerRoutes(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/overlay", websocket.New(s.handleOverlayWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/feedback", websocket.New(s.serveHub(s.feedbackHub)))
	app.Get("/ws/speech", websocket.New(s.serveHub(s.speechHub)))
	app.Get("/ws/tones", websocket.New(s.serveHub(s.tonesHub)))

	s.app = app
	return s
}

// Start runs the hubs and listens. It blocks until the listener fails or
// Shutdown is called.
func (s *Server) Start() error {
	s.runHubs()
	s.logger.Info("dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server stopped", "error", err)
		}
	}()
}

func (s *Server) runHubs() {
	s.startOnce.Do(func() {
		for _, h := range s.hubs() {
			go h.Run()
		}
	})
}

func (s *Server) hubs() []*hub.Hub {
	return []*hub.Hub{s.overlayHub, s.statusHub, s.feedbackHub, s.speechHub, s.tonesHub}
}

// SetResults publishes one frame's raw detections. Nil clears the overlay.
func (s *Server) SetResults(dets []detection.Detection) {
	ev := OverlayEvent{Type: "overlay", Detections: dets, At: time.Now()}
	if ev.Detections == nil {
		ev.Detections = []detection.Detection{}
	}

	s.overlayMu.Lock()
	s.lastOverlay = ev
	s.overlayMu.Unlock()

	if err := s.overlayHub.BroadcastJSON(ev); err != nil {
		s.logger.Debug("overlay broadcast failed", "error", err)
	}
}

// PublishStatus pushes a status snapshot to status subscribers.
func (s *Server) PublishStatus(st Status) {
	s.statusHub.BroadcastJSON(Event{Type: "status", Data: st})
}

// PublishDecision pushes a per-frame decision to status subscribers.
func (s *Server) PublishDecision(d pipeline.Decision) {
	s.statusHub.BroadcastJSON(Event{Type: "decision", Data: d})
}

// FeedbackHub carries haptic events for the wearable client.
func (s *Server) FeedbackHub() *hub.Hub { return s.feedbackHub }

// SpeechHub carries opus speech audio and utterance transcripts.
func (s *Server) SpeechHub() *hub.Hub { return s.speechHub }

// TonesHub carries opus proximity beeps.
func (s *Server) TonesHub() *hub.Hub { return s.tonesHub }

// Shutdown stops the listener and the hubs.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	for _, h := range s.hubs() {
		h.Stop()
	}
	return err
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		hub.NewClient(h, c).Run()
	}
}

func (s *Server) handleOverlayWS(c *websocket.Conn) {
	s.overlayMu.RLock()
	last := s.lastOverlay
	s.overlayMu.RUnlock()

	var initial []hub.Message
	if msg, err := hub.JSON(last); err == nil {
		initial = append(initial, msg)
	}
	hub.NewClient(s.overlayHub, c, initial...).Run()
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	var initial []hub.Message
	if msg, err := hub.JSON(Event{Type: "status", Data: s.opts.Navigator.Status()}); err == nil {
		initial = append(initial, msg)
	}
	hub.NewClient(s.statusHub, c, initial...).Run()
}
