package stream

import (
	"context"
	"sync"

	"github.com/jmehdipour/event-stream/internal/model"
)

// Handler reacts to an event after it has been created. Handlers run from
// within Dispatch, in this process only: a handler registered here never
// fires for events dispatched by another server instance. Cross-process
// listeners subscribe to the broadcast channel instead.
type Handler func(ctx context.Context, ev model.Event) error

// Hooks maps topics to ordered handler lists. Construct one per process and
// hand it to the stream; tests build isolated registries the same way.
type Hooks struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewHooks() *Hooks {
	return &Hooks{handlers: map[string][]Handler{}}
}

// Subscribe registers a handler for an exact topic. No wildcards. Handlers
// for a topic run in registration order.
func (h *Hooks) Subscribe(topic string, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[topic] = append(h.handlers[topic], handler)
}

// Handlers returns a snapshot of the handlers registered for topic.
func (h *Hooks) Handlers(topic string) []Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	hs := h.handlers[topic]
	if len(hs) == 0 {
		return nil
	}
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}
