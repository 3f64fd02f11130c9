package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/bppowerplay/portal/internal/model"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "powerplay:events"

// Hub manages the WebSocket connections of open portal pages and fans portal
// events out to them: multi-device warnings targeted at one account, and
// cache controller lifecycle events broadcast to everyone.
// Redis Pub/Sub carries events across gateway instances.
type Hub struct {
	// Map of account email -> set of page connections. Pages that have not
	// logged in yet register under the empty email.
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// Channels for registering/unregistering clients
	register   chan *Client
	unregister chan *Client

	// Redis client for Pub/Sub; nil means single-instance local delivery
	rdb *redis.Client
}

// NewHub creates a new page event hub.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
	}
}

// Run starts the Hub's main event loop
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register queues a client for registration with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.Email]; !ok {
		h.clients[client.Email] = make(map[*Client]bool)
	}
	h.clients[client.Email][client] = true
	log.Printf("✅ Page connected (account=%q, connections: %d)", client.Email, len(h.clients[client.Email]))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.Email]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.clients, client.Email)
			}
		}
	}
	log.Printf("❌ Page disconnected (account=%q)", client.Email)
}

// Broadcast delivers an event to every connected page on every instance.
func (h *Hub) Broadcast(event *model.WSEvent) {
	if h.rdb == nil {
		h.broadcastToLocal(event)
		return
	}
	h.publishToRedis(&TargetedEvent{Event: event})
}

// SendToAccount delivers an event to all pages holding the account's session.
func (h *Hub) SendToAccount(email string, event *model.WSEvent) {
	if h.rdb == nil {
		h.sendToLocalAccount(email, event)
		return
	}
	h.publishToRedis(&TargetedEvent{TargetEmail: email, Event: event})
}

func (h *Hub) sendToLocalAccount(email string, event *model.WSEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[email]
	if !ok {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling event: %v", err)
		return
	}
	for client := range clients {
		select {
		case client.send <- data:
		default:
			// Client's send buffer is full, close connection
			close(client.send)
			delete(clients, client)
		}
	}
}

func (h *Hub) broadcastToLocal(event *model.WSEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling broadcast event: %v", err)
		return
	}

	for _, clients := range h.clients {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				close(client.send)
				delete(clients, client)
			}
		}
	}
}

// ========== Redis Pub/Sub for Horizontal Scaling ==========

// TargetedEvent wraps an event with a target account for Redis Pub/Sub
type TargetedEvent struct {
	TargetEmail string         `json:"target_email,omitempty"`
	Event       *model.WSEvent `json:"event"`
}

func (h *Hub) publishToRedis(data *TargetedEvent) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling for Redis: %v", err)
		return
	}

	if err := h.rdb.Publish(context.Background(), redisChannel, jsonData).Err(); err != nil {
		log.Printf("Error publishing to Redis: %v", err)
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Println("📡 Redis Pub/Sub subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			var targeted TargetedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &targeted); err != nil {
				log.Printf("Error unmarshaling Redis message: %v", err)
				continue
			}

			if targeted.Event == nil {
				continue
			}
			if targeted.TargetEmail != "" {
				h.sendToLocalAccount(targeted.TargetEmail, targeted.Event)
			} else {
				h.broadcastToLocal(targeted.Event)
			}
		}
	}
}
