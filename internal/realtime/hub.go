package realtime

import (
	"sync"

	"trade_market/pkg/metrics"
)

// Hub держит соединения этого процесса и их подписки на топики.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	topics  map[string]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		topics:  make(map[string]map[string]*Client),
	}
}

func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	metrics.RealtimeConnections.Inc()
}

// detach removes c from the hub and reports whether it was still attached.
func (h *Hub) detach(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return false
	}

	delete(h.clients, c.ID)

	for topic, subscribers := range h.topics {
		delete(subscribers, c.ID)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}

	metrics.RealtimeConnections.Dec()

	return true
}

func (h *Hub) subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}

	subscribers, ok := h.topics[topic]
	if !ok {
		subscribers = make(map[string]*Client)
		h.topics[topic] = subscribers
	}

	subscribers[c.ID] = c
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.topics[topic]; ok {
		delete(subscribers, c.ID)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Deliver отправляет конверт локальным получателям и возвращает их число.
// Клиент с переполненной очередью отключается.
func (h *Hub) Deliver(env Envelope) int {
	var targets []*Client

	h.mu.RLock()
	switch {
	case env.ConnID != "":
		if c, ok := h.clients[env.ConnID]; ok {
			targets = append(targets, c)
		}
	case env.Topic != "":
		for _, c := range h.topics[env.Topic] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0

	for _, c := range targets {
		if c.enqueue(env.Frame) {
			delivered++
			continue
		}

		h.detach(c)
		c.close()
	}

	return delivered
}

// Clients returns a snapshot of the attached connections.
func (h *Hub) Clients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}

	return clients
}

func (h *Hub) Close() {
	for _, c := range h.Clients() {
		h.detach(c)
		c.close()
	}
}
