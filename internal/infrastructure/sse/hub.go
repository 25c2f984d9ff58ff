// Package sse streams finished audits to browsers via Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/notify"
	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
)

// Message is one server-sent event.
type Message struct {
	ID    string
	Event string
	Data  []byte
}

// Hub fans messages out to every connected client. Slow clients miss
// messages rather than block publishers.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan Message]struct{}
	logger  *slog.Logger
	now     func() time.Time
}

var _ application.OutcomeListener = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[chan Message]struct{}),
		logger:  logger,
		now:     time.Now,
	}
}

// AuditFinished publishes the run's outcome under its payload event name.
func (h *Hub) AuditFinished(_ context.Context, o *pipeline.Outcome) {
	p := notify.FromOutcome(o, h.now())
	if err := h.Publish(p.Event, p); err != nil {
		h.logger.Error("sse publish failed", "error", err)
	}
}

// Publish sends v, encoded as JSON, to all clients.
func (h *Hub) Publish(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	msg := Message{ID: uuid.NewString(), Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) subscribe() chan Message {
	ch := make(chan Message, 16)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Message) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// ServeHTTP streams messages until the client disconnects. The optional
// "types" query parameter is a comma-separated list of event names to keep.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	typeFilter := make(map[string]bool)
	if types := r.URL.Query().Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			typeFilter[strings.TrimSpace(t)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// Comment line so clients see the stream open before the first event.
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if len(typeFilter) > 0 && !typeFilter[msg.Event] {
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %s\n", msg.ID)
			_, _ = fmt.Fprintf(w, "event: %s\n", msg.Event)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", msg.Data)
			flusher.Flush()
		}
	}
}
