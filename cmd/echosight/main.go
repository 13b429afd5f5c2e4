// EchoSight - camera-based navigation assistant with spoken cues
// Streams haptics, tones and speech to the dashboard over websockets
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-echosight/internal/config"
	"github.com/teslashibe/go-echosight/internal/log"
	"github.com/teslashibe/go-echosight/pkg/navigator"
)

type flags struct {
	configPath string
	envPath    string
	addr       string
	logLevel   string
	camera     string
	detector   string
	autostart  bool
}

func main() {
	f := parseFlags()

	if err := config.LoadDotEnv(f.envPath); err != nil {
		fatal("load env file", err)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fatal("configuration error", err)
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fatal("configuration error", err)
	}

	log.Init(cfg.Log.Level)
	logger := log.Component("main")

	app, err := navigator.New(cfg, log.L())
	if err != nil {
		fatal("setup failed", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		fatal("initialization failed", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := app.Shutdown(sctx); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	if f.autostart {
		if err := app.Start(ctx); err != nil {
			logger.Error("autostart failed", "error", err)
		}
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("runtime error", "error", err)
	}
}

// parseFlags parses command line flags. Flags win over the config file
// and the environment.
func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", os.Getenv("ECHOSIGHT_CONFIG"), "YAML config file")
	flag.StringVar(&f.envPath, "env", ".env", "dotenv file with API keys")
	flag.StringVar(&f.addr, "addr", "", "dashboard listen address (overrides web.addr)")
	flag.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	flag.StringVar(&f.camera, "camera", "", "camera backend: gocv, static or mock")
	flag.StringVar(&f.detector, "detector", "", "detector backend: yolo, remote or mock")
	flag.BoolVar(&f.autostart, "start", false, "start navigating immediately")
	flag.Parse()
	return f
}

func (f flags) apply(cfg *config.Config) {
	if f.addr != "" {
		cfg.Web.Addr = f.addr
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.camera != "" {
		cfg.Camera.Backend = f.camera
	}
	if f.detector != "" {
		cfg.Detector.Backend = f.detector
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "echosight: %s: %v\n", msg, err)
	os.Exit(1)
}
