package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"all presets", func(c *Config) { *c = *GetPreset(PresetLowPower) }, false},
		{"bad backend", func(c *Config) { c.Backend = "webrtc" }, true},
		{"static without path", func(c *Config) { c.Backend = BackendStatic }, true},
		{"tiny width", func(c *Config) { c.Width = 10 }, true},
		{"framerate too high", func(c *Config) { c.Framerate = 60 }, true},
		{"quality zero", func(c *Config) { c.Quality = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			errs := cfg.Validate()
			if (len(errs) > 0) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", errs, tc.wantErr)
			}
		})
	}
}

func TestPresets_Valid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %q missing", name)
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("unknown preset should be nil")
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	base := DefaultConfig()
	base.Device = "/dev/video2"
	m := NewManager(base)

	var applied Config
	m.OnConfigChange = func(cfg Config) error {
		applied = cfg
		return nil
	}

	if err := m.UpdateConfig(map[string]any{"preset": PresetLowPower, "framerate": float64(3)}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	got := m.GetConfig()
	if got.Width != 320 || got.Framerate != 3 {
		t.Errorf("config = %+v", got)
	}
	if got.Device != "/dev/video2" {
		t.Errorf("preset must keep the device, got %q", got.Device)
	}
	if applied != got {
		t.Error("OnConfigChange not called with the new config")
	}

	if err := m.UpdateConfig(map[string]any{"width": 5}); err == nil {
		t.Error("expected validation error")
	}
	if err := m.UpdateConfig(map[string]any{"preset": "nope"}); err == nil {
		t.Error("expected unknown preset error")
	}
}

func TestManager_SetConfigKeepsOldOnCallbackError(t *testing.T) {
	m := NewManager(DefaultConfig())
	errReopen := errors.New("device busy")
	m.OnConfigChange = func(cfg Config) error { return errReopen }

	next := DefaultConfig()
	next.Width = 1280
	next.Height = 720
	if err := m.SetConfig(next); !errors.Is(err, errReopen) {
		t.Fatalf("SetConfig error = %v, want %v", err, errReopen)
	}
	if got := m.GetConfig(); got != DefaultConfig() {
		t.Errorf("config = %+v, want the previous config", got)
	}

	m.OnConfigChange = nil
	if err := m.SetConfig(next); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if got := m.GetConfig(); got != next {
		t.Errorf("config = %+v, want %+v", got, next)
	}
}

func TestStaticSource(t *testing.T) {
	data := testJPEG(t, 64, 48)
	path := filepath.Join(t.TempDir(), "scene.jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Open(Config{Backend: BackendStatic, StaticPath: path}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	f, err := src.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if f.Width != 64 || f.Height != 48 {
		t.Errorf("size = %dx%d, want 64x48", f.Width, f.Height)
	}
	if !bytes.Equal(f.JPEG, data) {
		t.Error("frame bytes differ from file")
	}

	if _, err := NewStatic([]byte("not a jpeg")); err == nil {
		t.Error("expected decode error")
	}
}

func TestMock(t *testing.T) {
	m := NewMock(Frame{Width: 1}, Frame{Width: 2})
	ctx := context.Background()

	for _, want := range []int{1, 2, 2} {
		f, err := m.Capture(ctx)
		if err != nil {
			t.Fatalf("Capture: %v", err)
		}
		if f.Width != want {
			t.Errorf("width = %d, want %d", f.Width, want)
		}
	}
	if m.Calls() != 3 {
		t.Errorf("Calls = %d", m.Calls())
	}

	m.Close()
	if _, err := m.Capture(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("after close: %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := NewMock().Capture(cctx); err == nil {
		t.Error("expected context error")
	}
}
