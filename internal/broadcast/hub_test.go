package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"keyoverlay/internal/protocol"
)

func receive(t *testing.T, sub *Subscriber) protocol.Message {
	t.Helper()
	select {
	case data, ok := <-sub.Messages():
		if !ok {
			t.Fatal("Subscriber channel closed")
		}
		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Invalid message %s: %v", data, err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for message")
	}
	return protocol.Message{}
}

func TestFanOut(t *testing.T) {
	h := NewHub(16)
	subs := []*Subscriber{h.Register(), h.Register(), h.Register()}

	h.Publish(protocol.KeyPress("Ctrl+A"))
	for i, sub := range subs {
		if msg := receive(t, sub); msg.Combo != "Ctrl+A" {
			t.Errorf("Subscriber %d: expected 'Ctrl+A', got %q", i, msg.Combo)
		}
	}

	h.Unregister(subs[1].ID)
	if _, ok := <-subs[1].Messages(); ok {
		t.Error("Expected unregistered subscriber channel to be closed")
	}

	h.Publish(protocol.KeyPress("B"))
	for _, sub := range []*Subscriber{subs[0], subs[2]} {
		if msg := receive(t, sub); msg.Combo != "B" {
			t.Errorf("Expected 'B', got %q", msg.Combo)
		}
	}
	if h.Count() != 2 {
		t.Errorf("Expected 2 subscribers, got %d", h.Count())
	}
}

func TestGreetingComesFirst(t *testing.T) {
	h := NewHub(16)
	sub := h.Register(protocol.Settings(json.RawMessage(`{"comboMode":true}`)))
	h.Publish(protocol.KeyPress("A"))

	if msg := receive(t, sub); msg.Type != protocol.TypeSettings {
		t.Errorf("Expected settings first, got %q", msg.Type)
	}
	if msg := receive(t, sub); msg.Type != protocol.TypeKeyPress {
		t.Errorf("Expected keypress second, got %q", msg.Type)
	}
}

func TestSlowSubscriberDropped(t *testing.T) {
	h := NewHub(16)
	slow := h.Register()

	// Never read from slow; the publisher must not block.
	for i := 0; i < SendBuffer+1; i++ {
		h.Publish(protocol.KeyPress("A"))
	}

	if h.Count() != 0 {
		t.Errorf("Expected slow subscriber to be dropped, got %d subscribers", h.Count())
	}
	n := 0
	for range slow.Messages() {
		n++
	}
	if n != SendBuffer {
		t.Errorf("Expected %d buffered messages, got %d", SendBuffer, n)
	}

	// Later subscribers are unaffected.
	next := h.Register()
	h.Publish(protocol.KeyPress("B"))
	if msg := receive(t, next); msg.Combo != "B" {
		t.Errorf("Expected 'B', got %q", msg.Combo)
	}
}

func TestCountCallback(t *testing.T) {
	h := NewHub(16)

	var mu sync.Mutex
	var counts []int
	h.OnCountChanged(func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	})

	a := h.Register()
	b := h.Register()
	h.Unregister(a.ID)
	h.Unregister(a.ID) // no change, no callback
	h.Unregister(b.ID)

	mu.Lock()
	defer mu.Unlock()
	want := []int{1, 2, 1, 0}
	if len(counts) != len(want) {
		t.Fatalf("Expected counts %v, got %v", want, counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("Expected counts %v, got %v", want, counts)
			break
		}
	}
}

func TestEnqueueNeverBlocks(t *testing.T) {
	h := NewHub(2)
	if !h.Enqueue("A") || !h.Enqueue("B") {
		t.Fatal("Expected first two combos to be queued")
	}
	if h.Enqueue("C") {
		t.Error("Expected enqueue on full queue to fail")
	}
	if h.Dropped() != 1 {
		t.Errorf("Expected 1 dropped combo, got %d", h.Dropped())
	}
}

func TestRunPublishesQueue(t *testing.T) {
	h := NewHub(8)
	sub := h.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	h.Enqueue("⌘+C")
	h.Enqueue("⌘+V")

	for _, want := range []string{"⌘+C", "⌘+V"} {
		msg := receive(t, sub)
		if msg.Type != protocol.TypeKeyPress || msg.Combo != want {
			t.Errorf("Expected keypress %q, got %+v", want, msg)
		}
	}
}
