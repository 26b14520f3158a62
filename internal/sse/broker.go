// Package sse implements a Server-Sent Events broker that pushes catalog
// changes to connected viewers.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// EventViewInvalidated tells viewers to refetch their filtered view. It is
// throttled so a burst of changes produces one refetch.
const EventViewInvalidated = "view.invalidated"

const (
	defaultThrottle  = 2 * time.Second
	defaultHistory   = 64
	defaultHeartbeat = 25 * time.Second
	viewerBuffer     = 64
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type frame struct {
	id  uint64
	raw []byte
}

type catalogChange struct {
	kind       string
	caseID     string
	invalidate bool
}

type joinReq struct {
	ch     chan []byte
	lastID uint64
}

// Option configures a Broker.
type Option func(*Broker)

// WithHistory sets how many frames are kept for Last-Event-ID replay.
func WithHistory(n int) Option {
	return func(b *Broker) {
		if n >= 0 {
			b.historyCap = n
		}
	}
}

// WithHeartbeat sets the interval of keep-alive comments on open streams.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// Broker fans catalog events out to SSE viewers.
//
// The loop goroutine owns the viewer set, the frame history and the
// invalidation throttle. Every other method talks to it over channels.
type Broker struct {
	throttle   time.Duration
	historyCap int
	heartbeat  time.Duration

	joinCh    chan joinReq
	leaveCh   chan chan []byte
	eventCh   chan Event
	changeCh  chan catalogChange
	viewersCh chan chan int

	done    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. throttle bounds how often view.invalidated is
// sent; zero or less means two seconds.
func NewBroker(throttle time.Duration, opts ...Option) *Broker {
	if throttle <= 0 {
		throttle = defaultThrottle
	}
	b := &Broker{
		throttle:   throttle,
		historyCap: defaultHistory,
		heartbeat:  defaultHeartbeat,
		joinCh:     make(chan joinReq),
		leaveCh:    make(chan chan []byte),
		eventCh:    make(chan Event, 256),
		changeCh:   make(chan catalogChange, 256),
		viewersCh:  make(chan chan int),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	viewers := make(map[chan []byte]struct{})
	var history []frame
	var seq uint64
	var lastInvalidation time.Time

	emit := func(typ string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			return
		}
		seq++
		f := frame{id: seq, raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, typ, payload))}
		if b.historyCap > 0 {
			history = append(history, f)
			if len(history) > b.historyCap {
				history = history[len(history)-b.historyCap:]
			}
		}
		for ch := range viewers {
			select {
			case ch <- f.raw:
			default:
				// Viewer is behind; it will catch up on the next refetch.
			}
		}
	}

	for {
		select {
		case <-b.done:
			for ch := range viewers {
				close(ch)
			}
			return

		case req := <-b.joinCh:
			viewers[req.ch] = struct{}{}
			if req.lastID == 0 {
				continue
			}
			for _, f := range history {
				if f.id <= req.lastID {
					continue
				}
				select {
				case req.ch <- f.raw:
				default:
				}
			}

		case ch := <-b.leaveCh:
			if _, ok := viewers[ch]; ok {
				delete(viewers, ch)
				close(ch)
			}

		case ev := <-b.eventCh:
			emit(ev.Type, ev.Data)

		case c := <-b.changeCh:
			data := map[string]string{}
			if c.caseID != "" {
				data["id"] = c.caseID
			}
			emit(c.kind, data)
			if c.invalidate && time.Since(lastInvalidation) >= b.throttle {
				lastInvalidation = time.Now()
				emit(EventViewInvalidated, map[string]string{})
			}

		case resp := <-b.viewersCh:
			resp <- len(viewers)
		}
	}
}

// Close stops the loop and closes every viewer channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.done)
	}
	<-b.stopped
}

// Subscribe registers a viewer. Frames newer than lastID still held in the
// history are queued first; pass 0 for a fresh stream.
func (b *Broker) Subscribe(lastID uint64) chan []byte {
	ch := make(chan []byte, viewerBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.joinCh <- joinReq{ch: ch, lastID: lastID}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a viewer and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leaveCh <- ch:
	case <-b.stopped:
	}
}

// ViewerCount returns the number of connected viewers.
func (b *Broker) ViewerCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.viewersCh <- resp:
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
	case b.eventCh <- ev:
	case <-b.stopped:
	}
}

// PublishCatalogEvent broadcasts a catalog change. When invalidate is set a
// throttled view.invalidated event follows.
func (b *Broker) PublishCatalogEvent(kind, caseID string, invalidate bool) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- catalogChange{kind: kind, caseID: caseID, invalidate: invalidate}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one viewer (GET /api/events). A reconnecting
// viewer's Last-Event-ID header resumes from the history.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(lastID)
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
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
