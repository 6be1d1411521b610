package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"hiring-signals/internal/events"
)

// keepaliveInterval spaces idle pings so proxies do not reap the connection
// while the pipeline sits between runs.
const keepaliveInterval = 30 * time.Second

type EventsHandler struct {
	Hub *events.Hub
}

// ServeSSE streams run lifecycle events. A ping envelope confirms the
// subscription immediately; further pings keep idle connections alive.
func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	reqID := RequestIDFrom(r.Context())
	send := func(payload string) {
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
		flusher.Flush()
	}
	send(events.MakeEvent(reqID, events.TypePing, 1, nil))

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			send(events.MakeEvent(reqID, events.TypePing, 1, nil))
		case msg := <-ch:
			send(msg)
		}
	}
}
