package sse

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

const clientBuffer = 64

// Message is one named SSE event ready to be written to a client. Topic is
// used for subscription filtering and is not sent.
type Message struct {
	Event string
	Topic string
	Data  []byte
}

// Client is a connected admin stream. A client with no topics receives
// everything.
type Client struct {
	ID     string
	Events chan Message
	topics map[string]struct{}
}

func (c *Client) wants(topic string) bool {
	if len(c.topics) == 0 || topic == "" {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

// Hub fans messages out to connected stream clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client subscribed to topics (all topics when empty).
func (h *Hub) Register(clientID string, topics ...string) *Client {
	c := &Client{
		ID:     clientID,
		Events: make(chan Message, clientBuffer),
	}
	if len(topics) > 0 {
		c.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			c.topics[t] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[clientID] = c
	log.Info().Str("client_id", clientID).Strs("topics", topics).Int("total_clients", len(h.clients)).Msg("SSE client connected")
	return c
}

// Unregister removes a client and closes its channel. It is a no-op for
// unknown or already removed clients.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// Publish sends payload as event to every client subscribed to topic. A
// client whose buffer is full misses the message.
func (h *Hub) Publish(event, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal SSE event")
		return
	}
	msg := Message{Event: event, Topic: topic, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.Events <- msg:
		default:
			log.Warn().Str("client_id", c.ID).Msg("SSE client buffer full, dropping event")
		}
	}
}

// CloseAll disconnects every client so open streams return. Call it before
// shutting down the HTTP server.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		close(c.Events)
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
