package hub

import (
	"testing"
	"time"
)

func TestBroadcast_NeverBlocks(t *testing.T) {
	h := New("test", nil)

	// Run is not started, so the queue fills and further messages drop.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.BroadcastBinary([]byte{byte(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a full queue")
	}

	if h.Dropped() != 1000-256 {
		t.Errorf("Dropped = %d, want %d", h.Dropped(), 1000-256)
	}
}

func TestBroadcastJSON(t *testing.T) {
	h := New("test", nil)
	if err := h.BroadcastJSON(map[string]int{"n": 1}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	msg := <-h.broadcast
	if msg.Kind != KindJSON {
		t.Errorf("kind = %v, want json", msg.Kind)
	}
	if string(msg.Data) != `{"n":1}` {
		t.Errorf("data = %s", msg.Data)
	}

	if err := h.BroadcastJSON(func() {}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestRunStop(t *testing.T) {
	h := New("test", nil)
	exited := make(chan struct{})
	go func() {
		h.Run()
		close(exited)
	}()

	deadline := time.Now().Add(time.Second)
	for !h.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !h.IsRunning() {
		t.Fatal("hub did not start")
	}

	h.Stop()
	h.Stop()

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after stop", h.ClientCount())
	}
}
