package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/utils"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	streamBuffer      = 100
	heartbeatInterval = 30 * time.Second
	writeTimeout      = 5 * time.Second
)

// EventsStreamHandler streams bus events to clients over Server-Sent Events or WebSocket.
type EventsStreamHandler struct {
	eventBus       *events.Bus
	originPatterns []string
	log            zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler. originPatterns lists the
// hosts allowed to open a WebSocket from a browser; nil accepts same-origin only.
func NewEventsStreamHandler(eventBus *events.Bus, originPatterns []string, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:       eventBus,
		originPatterns: originPatterns,
		log:            log.With().Str("component", "events_stream").Logger(),
	}
}

// parseTypes reads the comma-separated ?types= filter. An empty filter selects every type.
func parseTypes(filter string) []events.EventType {
	if filter == "" {
		return events.AllTypes
	}
	var types []events.EventType
	for _, t := range utils.ParseCSV(filter) {
		types = append(types, events.EventType(t))
	}
	return types
}

// subscribe forwards events of the given types into a buffered channel. Events are
// dropped when the client falls behind.
func (h *EventsStreamHandler) subscribe(types []events.EventType) (<-chan *events.Event, func()) {
	eventChan := make(chan *events.Event, streamBuffer)
	handler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	unsubscribers := make([]func(), 0, len(types))
	for _, t := range types {
		unsubscribers = append(unsubscribers, h.eventBus.Subscribe(t, handler))
	}
	return eventChan, func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

func (h *EventsStreamHandler) encodeEvent(event *events.Event) []byte {
	data, err := json.Marshal(map[string]interface{}{
		"type":      string(event.Type),
		"module":    event.Module,
		"timestamp": event.Timestamp.Format(time.RFC3339),
		"data":      event.Data,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return []byte(`{"error":"failed to encode event"}`)
	}
	return data
}

func controlMessage(kind string) []byte {
	data, _ := json.Marshal(map[string]string{
		"type":      kind,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	return data
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan, unsubscribe := h.subscribe(parseTypes(r.URL.Query().Get("types")))
	defer unsubscribe()

	h.log.Info().Str("types_filter", r.URL.Query().Get("types")).Msg("Client connected to event stream")

	fmt.Fprintf(w, "data: %s\n\n", controlMessage("connected"))
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return
		case event := <-eventChan:
			fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(event))
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, "data: %s\n\n", controlMessage("heartbeat"))
			flusher.Flush()
		}
	}
}

// ServeWebSocket handles GET /api/events/ws requests. Every event is sent as one JSON
// text message; messages from the client are ignored.
func (h *EventsStreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	eventChan, unsubscribe := h.subscribe(parseTypes(r.URL.Query().Get("types")))
	defer unsubscribe()

	// CloseRead discards client messages and cancels ctx when the peer closes
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Str("types_filter", r.URL.Query().Get("types")).Msg("WebSocket client connected")

	if err := h.write(ctx, conn, controlMessage("connected")); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("WebSocket client disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-eventChan:
			if err := h.write(ctx, conn, h.encodeEvent(event)); err != nil {
				return
			}
		case <-heartbeat.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("WebSocket ping failed")
				return
			}
		}
	}
}

func (h *EventsStreamHandler) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		h.log.Debug().Err(err).Msg("WebSocket write failed")
		return err
	}
	return nil
}
