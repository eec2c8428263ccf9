package telemetry

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wrt-go/wrt/internal/infra/logging"
)

// clientSendBuffer bounds how far a slow client can fall behind before
// Publish starts dropping events for it rather than blocking the
// publisher — telemetry is best-effort observability, never a delivery
// guarantee execution depends on.
const clientSendBuffer = 32

type client struct {
	send chan Event
}

// Hub fans Event values out to every currently-registered client. It holds
// no state about *why* an event happened — that's the caller's job (the
// executor, preempt manager, interpreter) — only the registration and
// delivery mechanics, the same separation internal/fuel/executor keeps
// between "what happened" and "who's driving it" via the Step seam.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *logging.Logger
}

// NewHub constructs an empty Hub. logger may be nil.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) register() *client {
	c := &client{send: make(chan Event, clientSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish stamps ev.Time and fans it out to every registered client. A
// client whose buffer is already full is skipped for this event rather
// than blocking every other client or the caller.
func (h *Hub) Publish(ev Event) {
	ev.Time = time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			if h.logger != nil {
				h.logger.WithFields(logrus.Fields{
					"event_kind": ev.Kind.String(),
					"task_id":    ev.TaskID,
				}).Warn("telemetry client buffer full, dropping event")
			}
		}
	}
}

// ClientCount reports the number of currently-connected observers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
