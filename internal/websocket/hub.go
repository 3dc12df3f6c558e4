package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aulacast/backend/internal/cache"
)

// Hub fans lifecycle events out to connected admin UI clients. Events are
// produced by the synchronizer, published through Redis pub/sub, and
// forwarded verbatim to every client; the feed is one-way.
type Hub struct {
	// Registered clients by connection id
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	redis *cache.RedisClient
	log   *slog.Logger

	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub(redis *cache.RedisClient, log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		redis:      redis,
		log:        log,
	}
}

// Run starts the hub
func (h *Hub) Run() {
	go h.subscribeToRedis()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.log.Info("event feed client connected", "operator", client.operator)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Info("event feed client disconnected", "operator", client.operator)

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// subscribeToRedis forwards lifecycle events from Redis to the broadcast
// channel.
func (h *Hub) subscribeToRedis() {
	if h.redis == nil {
		return
	}
	pubsub := h.redis.SubscribeToLifecycleEvents()
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.broadcast <- []byte(msg.Payload)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
