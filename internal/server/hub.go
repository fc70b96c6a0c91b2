package server

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Dhanuzh/arrow/internal/panel"
)

const subscriberBuffer = 64

// hub fans outbound panel messages out to every SSE subscriber of one panel.
// A subscriber that falls behind loses messages rather than blocking the
// controller.
type hub struct {
	log logrus.FieldLogger

	mu      sync.RWMutex
	next    int
	clients map[int]chan []byte
}

func newHub(log logrus.FieldLogger) *hub {
	return &hub{log: log, clients: make(map[int]chan []byte)}
}

// Send implements panel.Sink.
func (h *hub) Send(o panel.Outbound) {
	data, err := json.Marshal(o)
	if err != nil {
		h.log.WithError(err).Error("encode outbound message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- data:
		default:
			h.log.WithFields(logrus.Fields{"subscriber": id, "command": o.Command}).Warn("subscriber lagging, message dropped")
		}
	}
}

func (h *hub) subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.clients[id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, id)
		h.mu.Unlock()
	}
}

func (h *hub) subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
