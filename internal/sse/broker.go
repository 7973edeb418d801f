// Package sse streams note change notifications to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types written to the stream.
const (
	TypeNoteCreated      = "note.created"
	TypeNoteUpdated      = "note.updated"
	TypeNoteDeleted      = "note.deleted"
	TypeStructureUpdated = "structure.updated"
)

var noteTypes = map[string]string{
	"created": TypeNoteCreated,
	"updated": TypeNoteUpdated,
	"deleted": TypeNoteDeleted,
}

// Event is one message broadcast to every subscriber.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PathData is the payload of the note.* events.
type PathData struct {
	Path string `json:"path"`
}

type change struct {
	kind string
	path string
}

// Options tunes a Broker. Zero values select the defaults.
type Options struct {
	// StructureThrottle is the minimum gap between structure.updated events.
	StructureThrottle time.Duration
	// Heartbeat is how often idle streams receive a comment line.
	Heartbeat time.Duration
	// Buffer is the per-client queue size. Messages to a full queue are dropped.
	Buffer int
}

// Broker fans events out to SSE clients.
//
// One goroutine owns the client set and the throttle clock; every public
// method talks to it over channels.
type Broker struct {
	opts Options

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan change
	countCh       chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker.
func NewBroker(opts Options) *Broker {
	if opts.StructureThrottle <= 0 {
		opts.StructureThrottle = 2 * time.Second
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 30 * time.Second
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	b := &Broker{
		opts:          opts,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan change, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.loop()
	return b
}

// encode renders an event in wire form.
func encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload)), nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastStructure time.Time

	send := func(raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default:
			}
		}
	}
	broadcast := func(ev Event) {
		if raw, err := encode(ev); err == nil {
			send(raw)
		}
	}

	heartbeat := time.NewTicker(b.opts.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			broadcast(ev)

		case c := <-b.changeCh:
			typ, ok := noteTypes[c.kind]
			if !ok {
				continue
			}
			broadcast(Event{Type: typ, Data: PathData{Path: c.path}})
			if now := time.Now(); now.Sub(lastStructure) >= b.opts.StructureThrottle {
				lastStructure = now
				broadcast(Event{Type: TypeStructureUpdated, Data: struct{}{}})
			}

		case <-heartbeat.C:
			send([]byte(": ping\n\n"))

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is idempotent.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, b.opts.Buffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts an arbitrary event.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// NoteChanged broadcasts note.<kind> for path followed by a throttled
// structure.updated. kind is "created", "updated" or "deleted"; other kinds
// are ignored.
func (b *Broker) NoteChanged(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events until the request context ends (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
