package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(Options{})
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(Options{})
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeNoteCreated, Data: PathData{Path: "work/a"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "event: note.created\n") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `data: {"path":"work/a"}`) || !strings.HasSuffix(s, "\n\n") {
			t.Errorf("bad frame %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNoteChanged_StructureThrottle(t *testing.T) {
	b := NewBroker(Options{StructureThrottle: time.Hour})
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.NoteChanged("created", "a")
	b.NoteChanged("updated", "b")
	b.NoteChanged("renamed", "c")
	time.Sleep(50 * time.Millisecond)

	structure, notes := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, TypeStructureUpdated) {
			structure++
		} else {
			notes++
		}
	}
	if notes != 2 {
		t.Errorf("note events = %d, want 2", notes)
	}
	if structure != 1 {
		t.Errorf("structure events = %d, want 1 (throttled)", structure)
	}
}

func TestNoteChanged_StructureAfterThrottle(t *testing.T) {
	b := NewBroker(Options{StructureThrottle: 20 * time.Millisecond})
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.NoteChanged("deleted", "a")
	time.Sleep(40 * time.Millisecond)
	b.NoteChanged("deleted", "b")
	time.Sleep(50 * time.Millisecond)

	structure := 0
	for _, s := range drain(ch) {
		if strings.Contains(s, TypeStructureUpdated) {
			structure++
		}
	}
	if structure != 2 {
		t.Errorf("structure events = %d, want 2", structure)
	}
}

func TestHeartbeat(t *testing.T) {
	b := NewBroker(Options{Heartbeat: 10 * time.Millisecond})
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	select {
	case msg := <-ch:
		if string(msg) != ": ping\n\n" {
			t.Errorf("got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no heartbeat")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(Options{})
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.NoteChanged("updated", "x")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: note.updated") || !strings.Contains(body, "event: structure.updated") {
		t.Errorf("handler output missing events: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(Options{Buffer: 4})
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < 10; i++ {
		b.Publish(Event{Type: "test", Data: PathData{Path: "x"}})
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(drain(ch)); n != 4 {
		t.Errorf("delivered %d, want 4", n)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(Options{})
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}
	b.Publish(Event{Type: TypeNoteUpdated, Data: PathData{Path: "x"}})
	b.NoteChanged("updated", "x")
	if _, ok := <-b.Subscribe(); ok {
		t.Error("subscribe after close should return a closed channel")
	}
}
