// Package navigator is the EchoSight application: it owns the camera,
// the analyzer and the output channels, and turns commands into
// navigation sessions.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/teslashibe/go-echosight/internal/config"
	"github.com/teslashibe/go-echosight/pkg/audioio"
	"github.com/teslashibe/go-echosight/pkg/camera"
	"github.com/teslashibe/go-echosight/pkg/command"
	"github.com/teslashibe/go-echosight/pkg/detection"
	"github.com/teslashibe/go-echosight/pkg/feedback"
	"github.com/teslashibe/go-echosight/pkg/narrator"
	"github.com/teslashibe/go-echosight/pkg/pipeline"
	"github.com/teslashibe/go-echosight/pkg/speech"
	"github.com/teslashibe/go-echosight/pkg/tts"
	"github.com/teslashibe/go-echosight/pkg/web"
)

// Spoken lifecycle cues.
const (
	MsgReady         = "Systems ready."
	MsgStarted       = "Navigation started"
	MsgStopped       = "Navigation stopped"
	MsgAnalyzing     = "Analyzing the room. Please hold still."
	MsgAnalyzeFailed = "Analysis failed."
	MsgNoNarrator    = "AI is not ready yet."
)

// Speaker is the voice channel. speech.Channel and speech.Mock satisfy it.
type Speaker interface {
	Speak(text string)
	IsSpeaking() bool
}

// SourceOpener opens a frame source for a camera configuration.
type SourceOpener func(cfg camera.Config, logger *slog.Logger) (camera.Source, error)

// Option overrides a component New would otherwise build from config.
type Option func(*App)

// WithDetector uses d instead of the configured backend.
func WithDetector(d detection.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithSpeaker uses s instead of a TTS-backed speech channel.
func WithSpeaker(s Speaker) Option {
	return func(a *App) { a.speaker = s }
}

// WithNarrator uses n for scene descriptions.
func WithNarrator(n narrator.Narrator) Option {
	return func(a *App) { a.narrator = n }
}

// WithFeedback uses the given drivers instead of the hub-backed ones.
func WithFeedback(h feedback.Haptics, t feedback.Tones) Option {
	return func(a *App) {
		a.haptics, a.tones = h, t
		a.feedbackSet = true
	}
}

// WithSourceOpener replaces camera.Open.
func WithSourceOpener(open SourceOpener) Option {
	return func(a *App) { a.openSource = open }
}

// App is the EchoSight application orchestrator.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	detector    detection.Detector
	speaker     Speaker
	narrator    narrator.Narrator
	haptics     feedback.Haptics
	tones       feedback.Tones
	feedbackSet bool
	openSource  SourceOpener

	analyzer *pipeline.Analyzer
	metrics  *pipeline.Metrics
	registry *prometheus.Registry
	commands *command.Queue
	cameras  *camera.Manager
	web      *web.Server

	// sinks built here and closed on Shutdown
	sinks []audioio.Sink
	voice *speech.Channel

	// navigation state, guarded by navMu
	navMu    sync.Mutex
	source   camera.Source
	navCtx   context.Context // parent of every frame loop in a session
	stopLoop context.CancelFunc
	loopDone chan struct{}

	navigating atomic.Bool
	describing atomic.Bool
	startedAt  time.Time
	shutdown   sync.Once
}

// New builds every component from cfg. Nothing runs until Init and Run.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:        cfg,
		logger:     logger.With("component", "navigator"),
		openSource: func(c camera.Config, l *slog.Logger) (camera.Source, error) { return camera.Open(c, l) },
		startedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = pipeline.NewMetrics(a.registry)
	a.commands = command.NewQueue(0, logger)
	a.cameras = camera.NewManager(cfg.Camera)
	a.cameras.OnConfigChange = a.applyCameraConfig

	a.web = web.NewServer(web.Options{
		Addr:      cfg.Web.Addr,
		Navigator: a,
		Commands:  a.commands,
		Camera:    a.cameras,
		Gatherer:  a.registry,
		StaticDir: cfg.Web.StaticDir,
		Logger:    logger,
	})

	if err := a.initOutputs(logger); err != nil {
		a.closeSinks()
		return nil, err
	}

	if a.detector == nil {
		det, err := detection.New(cfg.Detector, logger)
		if err != nil {
			a.closeSinks()
			return nil, fmt.Errorf("detector: %w", err)
		}
		a.detector = det
	}

	if a.narrator == nil && cfg.Narrator.APIKey != "" {
		n, err := narrator.NewGemini(cfg.Narrator, logger)
		if err != nil {
			a.logger.Warn("narrator disabled", "error", err)
		} else {
			a.narrator = n
		}
	}

	a.analyzer = pipeline.NewAnalyzer(cfg.Pipeline(), a.detector, a.speaker,
		pipeline.WithOverlay(a.web),
		pipeline.WithFeedback(a.haptics, a.tones),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithLogger(logger),
	)

	return a, nil
}

// initOutputs builds the speech channel and feedback drivers that were
// not injected. Audio goes out as opus on the web hubs.
func (a *App) initOutputs(logger *slog.Logger) error {
	if a.speaker == nil {
		sink, err := audioio.NewSink(a.cfg.Audio, a.web.SpeechHub(), logger)
		if err != nil {
			return fmt.Errorf("speech sink: %w", err)
		}
		a.sinks = append(a.sinks, sink)

		provider, err := a.newTTS(logger)
		if err != nil {
			return err
		}
		a.voice = speech.NewChannel(provider, sink,
			speech.WithLogger(logger),
			speech.WithTimeout(a.cfg.Speech.Timeout+10*time.Second),
			speech.WithTranscript(a.web.SpeechHub()),
		)
		a.speaker = a.voice
	}

	if !a.feedbackSet {
		if a.cfg.Feedback.Haptics {
			a.haptics = feedback.NewHubHaptics(a.web.FeedbackHub())
		}
		sink, err := audioio.NewSink(a.cfg.Audio, a.web.TonesHub(), logger)
		if err != nil {
			return fmt.Errorf("tone sink: %w", err)
		}
		a.sinks = append(a.sinks, sink)
		a.tones = feedback.NewToneSynth(sink, a.cfg.Feedback.Tones)
	}
	return nil
}

func (a *App) newTTS(logger *slog.Logger) (tts.Provider, error) {
	if a.cfg.Speech.Provider == config.SpeechMock {
		return tts.NewMock(), nil
	}

	openai, err := tts.NewOpenAI(append(a.cfg.TTSOptions(), tts.WithLogger(logger))...)
	if errors.Is(err, tts.ErrNoAPIKey) {
		a.logger.Warn("OPENAI_API_KEY not set, speech will be silent")
		return tts.NewMock(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	return tts.NewChain(logger, openai)
}

// Init starts the audio sinks and announces readiness.
func (a *App) Init(ctx context.Context) error {
	for _, s := range a.sinks {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("start %s sink: %w", s.Name(), err)
		}
	}

	a.logger.Info("echosight ready",
		"detector", a.cfg.Detector.Backend,
		"camera", a.cfg.Camera.Backend,
		"narrator", a.narrator != nil,
		"addr", a.cfg.Web.Addr,
	)
	a.speaker.Speak(MsgReady)
	return nil
}

// Run serves the dashboard and dispatches commands until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.web.StartAsync()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-a.commands.C():
			a.dispatch(ctx, cmd)
		}
	}
}

func (a *App) dispatch(ctx context.Context, cmd command.Command) {
	a.logger.Info("command", "command", cmd)

	switch cmd {
	case command.Start:
		if err := a.Start(ctx); err != nil {
			a.logger.Error("start navigation failed", "error", err)
		}
	case command.Stop:
		a.Stop()
	case command.Describe:
		go a.Describe(ctx)
	case command.Help:
		a.speaker.Speak(command.HelpText)
	}
}

// Commands returns the queue commands are submitted on.
func (a *App) Commands() *command.Queue {
	return a.commands
}

// Web returns the dashboard server.
func (a *App) Web() *web.Server {
	return a.web
}

// Status implements web.Navigator.
func (a *App) Status() web.Status {
	st := web.Status{
		Navigating:    a.navigating.Load(),
		SessionID:     a.analyzer.SessionID(),
		Speaking:      a.speaker.IsSpeaking(),
		NarratorReady: a.narrator != nil,
		Detector:      a.cfg.Detector.Backend,
		Camera:        a.cameras.GetConfig(),
		StartedAt:     a.startedAt,
	}
	if last := a.analyzer.Last(); !last.At.IsZero() {
		st.Last = &last
	}
	return st
}

// Shutdown stops navigation and releases every component.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.shutdown.Do(func() {
		a.Stop()

		if a.voice != nil {
			a.voice.Close()
		}
		a.closeSinks()
		if cerr := a.detector.Close(); cerr != nil {
			a.logger.Warn("close detector", "error", cerr)
		}
		err = a.web.Shutdown(ctx)
		a.logger.Info("echosight stopped")
	})
	return err
}

func (a *App) closeSinks() {
	for _, s := range a.sinks {
		if err := s.Close(); err != nil {
			a.logger.Warn("close sink", "sink", s.Name(), "error", err)
		}
	}
}
