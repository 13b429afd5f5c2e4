package detection

import (
	"context"
	"errors"
	"testing"
)

func TestBox_Geometry(t *testing.T) {
	tests := []struct {
		name    string
		box     Box
		width   float64
		height  float64
		area    float64
		centerX float64
	}{
		{
			name:    "person box",
			box:     Box{Left: 100, Top: 100, Right: 400, Bottom: 800},
			width:   300,
			height:  700,
			area:    210000,
			centerX: 250,
		},
		{
			name:    "zero size",
			box:     Box{Left: 50, Top: 50, Right: 50, Bottom: 50},
			centerX: 50,
		},
		{
			name:    "inverted",
			box:     Box{Left: 400, Top: 800, Right: 100, Bottom: 100},
			centerX: 250,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.box.Width(); got != tc.width {
				t.Errorf("Width: got %.1f, want %.1f", got, tc.width)
			}
			if got := tc.box.Height(); got != tc.height {
				t.Errorf("Height: got %.1f, want %.1f", got, tc.height)
			}
			if got := tc.box.Area(); got != tc.area {
				t.Errorf("Area: got %.1f, want %.1f", got, tc.area)
			}
			if got := tc.box.CenterX(); got != tc.centerX {
				t.Errorf("CenterX: got %.1f, want %.1f", got, tc.centerX)
			}
		})
	}
}

func TestLabelFor(t *testing.T) {
	if got := LabelFor(COCOClasses, 0); got != "person" {
		t.Errorf("LabelFor(0) = %q, want person", got)
	}
	if got := LabelFor(COCOClasses, 56); got != "chair" {
		t.Errorf("LabelFor(56) = %q, want chair", got)
	}
	if got := LabelFor(COCOClasses, -1); got != "unknown" {
		t.Errorf("LabelFor(-1) = %q, want unknown", got)
	}
	if got := LabelFor(COCOClasses, len(COCOClasses)); got != "unknown" {
		t.Errorf("LabelFor(len) = %q, want unknown", got)
	}
}

func TestMock_Replay(t *testing.T) {
	first := []Detection{{Label: "person", Confidence: 0.9}}
	second := []Detection{{Label: "chair", Confidence: 0.7}}
	m := NewMock(first, second)
	ctx := context.Background()

	got, _ := m.Detect(ctx, nil)
	if len(got) != 1 || got[0].Label != "person" {
		t.Fatalf("frame 1: got %+v", got)
	}
	got, _ = m.Detect(ctx, nil)
	if got[0].Label != "chair" {
		t.Fatalf("frame 2: got %+v", got)
	}
	got, _ = m.Detect(ctx, nil)
	if got[0].Label != "chair" {
		t.Fatalf("frame 3 should repeat last frame, got %+v", got)
	}
	if m.Calls() != 3 {
		t.Errorf("Calls = %d, want 3", m.Calls())
	}
}

func TestMock_Error(t *testing.T) {
	boom := errors.New("boom")
	m := &Mock{Err: boom}
	if _, err := m.Detect(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestNew_Backends(t *testing.T) {
	d, err := New(Config{Backend: "mock"}, nil)
	if err != nil {
		t.Fatalf("mock backend: %v", err)
	}
	if _, ok := d.(*Mock); !ok {
		t.Errorf("expected *Mock, got %T", d)
	}

	if _, err := New(Config{Backend: "remote"}, nil); !errors.Is(err, ErrNoRemoteURL) {
		t.Errorf("remote without url: got %v", err)
	}

	if _, err := New(Config{Backend: "tflite"}, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewYOLO_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "/nonexistent/model.onnx"
	if _, err := NewYOLO(cfg, nil); err == nil {
		t.Error("expected error for missing model")
	}
}
