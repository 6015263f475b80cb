// Package sse streams document changes to connected editors as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// EventReindexed tells editors that search results may have changed.
const EventReindexed = "index.updated"

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Change is a market or trader file that was created, updated or deleted
// on disk.
type Change struct {
	Op   string
	Kind string
	Name string
}

func (c Change) valid() bool {
	switch c.Op {
	case "created", "updated", "deleted":
		return c.Kind != "" && c.Name != ""
	}
	return false
}

// clientBuffer is the number of frames a slow editor may lag behind
// before frames for it are dropped.
const clientBuffer = 64

// Broker fans events out to SSE clients. The client set and the reindex
// timestamp belong to the loop goroutine; every public method is a
// message to it.
type Broker struct {
	reindexEvery time.Duration
	keepAlive    time.Duration

	join    chan chan []byte
	leave   chan chan []byte
	events  chan Event
	changes chan Change
	count   chan chan int

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker starts a broker that follows file changes with at most one
// index.updated per reindexEvery.
func NewBroker(reindexEvery time.Duration) *Broker {
	if reindexEvery <= 0 {
		reindexEvery = 2 * time.Second
	}
	b := &Broker{
		reindexEvery: reindexEvery,
		keepAlive:    30 * time.Second,
		join:         make(chan chan []byte),
		leave:        make(chan chan []byte),
		events:       make(chan Event, 256),
		changes:      make(chan Change, 256),
		count:        make(chan chan int),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go b.loop()
	return b
}

func frame(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", ev.Type, payload), nil
}

type clientSet map[chan []byte]struct{}

// send never blocks the loop: a client whose buffer is full misses msg.
func (cs clientSet) send(msg []byte) {
	for ch := range cs {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (cs clientSet) sendEvent(ev Event) {
	if msg, err := frame(ev); err == nil {
		cs.send(msg)
	}
}

func (b *Broker) loop() {
	defer close(b.done)

	clients := clientSet{}
	var reindexed time.Time

	for {
		select {
		case <-b.quit:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.join:
			clients[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case resp := <-b.count:
			resp <- len(clients)

		case ev := <-b.events:
			clients.sendEvent(ev)

		case c := <-b.changes:
			if !c.valid() {
				continue
			}
			clients.sendEvent(Event{
				Type: c.Kind + "." + c.Op,
				Data: map[string]string{"kind": c.Kind, "name": c.Name},
			})
			if now := time.Now(); now.Sub(reindexed) >= b.reindexEvery {
				reindexed = now
				clients.sendEvent(Event{Type: EventReindexed, Data: map[string]string{}})
			}
		}
	}
}

// Close stops the loop and closes every client channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The channel is closed when the client
// leaves or the broker stops.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
	case <-b.done:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

// Publish sends ev to every client.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// PublishChange announces a changed file as "<kind>.<op>", followed by a
// throttled index.updated. Unknown ops are ignored.
func (b *Broker) PublishChange(c Change) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- c:
	case <-b.done:
	}
}

// ServeHTTP streams events to one editor until it disconnects. A comment
// line is written every keepAlive so idle proxies keep the stream open.
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
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
