package events

import "sync"

// subscriberBuffer bounds how far a subscriber may lag before events are
// dropped for it. Run lifecycle events are advisory; a stalled SSE client
// must never stall the pipeline.
const subscriberBuffer = 16

// Hub fans pipeline events out to SSE subscribers. Publishing is
// fire-and-forget.
type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan string]struct{})}
}

// Subscribe registers a new listener. The caller must Unsubscribe when done.
func (h *Hub) Subscribe() chan string {
	ch := make(chan string, subscriberBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Publish delivers evt to every subscriber that still has buffer room.
func (h *Hub) Publish(evt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// drop for this subscriber; it is behind
		}
	}
}
