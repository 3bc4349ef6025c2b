// Package push is the server side of the live-event transport: an SSE hub
// that streams notification.created events to subscribed channels.
package push

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one server-sent event on a channel.
type Event struct {
	Name string
	Data json.RawMessage
}

type subscriber struct {
	ch chan Event
}

// Hub tracks per-channel subscriber sets and fans events out to them.
// Delivery is best effort: a subscriber that cannot keep up has events
// dropped rather than blocking the publisher.
type Hub struct {
	mu        sync.Mutex
	channels  map[string]map[string]*subscriber
	heartbeat time.Duration
}

func NewHub(heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &Hub{
		channels:  make(map[string]map[string]*subscriber),
		heartbeat: heartbeat,
	}
}

// Publish delivers an event to every subscriber of channel.
func (h *Hub) Publish(channel string, ev Event) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.channels[channel]))
	for _, s := range h.channels[channel] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			slog.Warn("dropping event for slow subscriber", "channel", channel, "event", ev.Name)
		}
	}
}

// SubscriberCount reports the live subscribers on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[channel])
}

func (h *Hub) attach(channel string) (string, *subscriber) {
	id := uuid.NewString()
	s := &subscriber{ch: make(chan Event, 32)}
	h.mu.Lock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[string]*subscriber)
	}
	h.channels[channel][id] = s
	h.mu.Unlock()
	return id, s
}

func (h *Hub) detach(channel, id string) {
	h.mu.Lock()
	if subs := h.channels[channel]; subs != nil {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
	h.mu.Unlock()
}

// Serve streams channel events to w as text/event-stream until the client
// disconnects. The initial flush of the headers is the subscription
// acknowledgment the client waits for.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, channel string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	// Attach before the acknowledgment goes out: once the client sees the
	// 200 it may assume it is subscribed, so no event published after that
	// point can be missed.
	id, sub := h.attach(channel)
	defer h.detach(channel, id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-sub.ch:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
			flusher.Flush()
		}
	}
}
