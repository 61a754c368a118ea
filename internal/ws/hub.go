package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/parleychat/parley-backend/pkg/logger"
)

const redisPubSubChannel = "chat-events"

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "Number of currently connected WebSocket clients",
	})

	eventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_events_delivered_total",
		Help: "Total number of events delivered to WebSocket clients",
	}, []string{"type"})
)

// Hub is the live-session multiplexer. It tracks presence (which
// connections belong to which user) and room subscriptions, and fans
// events out to both audiences. It persists nothing: a connection that
// is offline at delivery time catches up from the database on the next
// join-room.
type Hub struct {
	// Registered clients grouped by user ID (a user may hold several
	// connections) and by subscribed room.
	users map[string]map[*Client]bool
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	subscribe  chan *subscription
	broadcast  chan *targetedEvent

	mu          sync.RWMutex
	redisClient *redis.Client
	instanceID  string
	ctx         context.Context
	cancel      context.CancelFunc
}

// subscription mutates room membership for one client, or for every
// connection of a user when userID is set (membership revocation).
type subscription struct {
	client *Client
	userID string
	room   string
	leave  bool
}

// targetedEvent addresses either all connections subscribed to Room or
// all connections of UserID, never both.
type targetedEvent struct {
	Room   string
	UserID string
	Event  *Event
}

// Origin lets an instance skip its own published events; local
// delivery already happened before the publish.
type redisMessage struct {
	Origin string `json:"origin"`
	Room   string `json:"room,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Event  *Event `json:"event"`
}

// NewHub creates a new Hub. redisClient may be nil for single-instance
// deployments.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		users:       make(map[string]map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *subscription),
		broadcast:   make(chan *targetedEvent, 256),
		redisClient: redisClient,
		instanceID:  uuid.New().String(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client and all its room subscriptions
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds the client to a room's audience
func (h *Hub) Subscribe(client *Client, room string) {
	h.subscribe <- &subscription{client: client, room: room}
}

// Unsubscribe removes the client from a room's audience
func (h *Hub) Unsubscribe(client *Client, room string) {
	h.subscribe <- &subscription{client: client, room: room, leave: true}
}

// RemoveUserFromRoom evicts every connection of a user from a room.
// Used when membership is revoked so the user drops out of all
// subsequent room fan-out immediately.
func (h *Hub) RemoveUserFromRoom(userID, room string) {
	h.subscribe <- &subscription{userID: userID, room: room, leave: true}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.users[client.userID] == nil {
				h.users[client.userID] = make(map[*Client]bool)
			}
			h.users[client.userID][client] = true
			h.mu.Unlock()
			connectedClients.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.users[client.userID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.users, client.userID)
					}
					connectedClients.Dec()
				}
			}
			for room, clients := range h.rooms {
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.rooms, room)
				}
			}
			h.mu.Unlock()

		case sub := <-h.subscribe:
			h.mu.Lock()
			if sub.leave {
				if clients, ok := h.rooms[sub.room]; ok {
					if sub.userID != "" {
						for client := range h.users[sub.userID] {
							delete(clients, client)
						}
					} else {
						delete(clients, sub.client)
					}
					if len(clients) == 0 {
						delete(h.rooms, sub.room)
					}
				}
			} else {
				if h.rooms[sub.room] == nil {
					h.rooms[sub.room] = make(map[*Client]bool)
				}
				h.rooms[sub.room][sub.client] = true
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.ctx.Done():
			return
		}
	}
}

// deliver pushes the event to the addressed audience. Sends are
// non-blocking: a client whose buffer is full is dropped rather than
// allowed to stall everyone else.
func (h *Hub) deliver(msg *targetedEvent) {
	data, err := json.Marshal(msg.Event)
	if err != nil {
		logger.Get().Error().Err(err).Str("type", msg.Event.Type).Msg("event marshal failed")
		return
	}

	h.mu.RLock()
	var audience map[*Client]bool
	if msg.Room != "" {
		audience = h.rooms[msg.Room]
	} else {
		audience = h.users[msg.UserID]
	}
	var stale []*Client
	for client := range audience {
		select {
		case client.send <- data:
			eventsDelivered.WithLabelValues(msg.Event.Type).Inc()
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	// Closing the connection makes the read pump exit and unregister
	// the client; the run loop owns all map mutation.
	for _, client := range stale {
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// BroadcastToRoom sends an event to every connection subscribed to the
// room (local + Redis publish for other instances)
func (h *Hub) BroadcastToRoom(room string, event *Event) {
	h.broadcast <- &targetedEvent{Room: room, Event: event}
	h.publish(&redisMessage{Origin: h.instanceID, Room: room, Event: event})
}

// SendToUser sends an event to every connection of a user, whether or
// not any of them is viewing the room that caused it
func (h *Hub) SendToUser(userID string, event *Event) {
	h.broadcast <- &targetedEvent{UserID: userID, Event: event}
	h.publish(&redisMessage{Origin: h.instanceID, UserID: userID, Event: event})
}

func (h *Hub) publish(msg *redisMessage) {
	if h.redisClient == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.redisClient.Publish(h.ctx, redisPubSubChannel, data) //nolint:errcheck
}

// subscribeRedis listens for events published by other instances
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var rm redisMessage
			if err := json.Unmarshal([]byte(msg.Payload), &rm); err == nil && rm.Origin != h.instanceID {
				// Local delivery only; never re-publish to Redis.
				h.broadcast <- &targetedEvent{Room: rm.Room, UserID: rm.UserID, Event: rm.Event}
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}
