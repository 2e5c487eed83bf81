package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-interview-be/internal/model"
	"ai-interview-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	hubModule = "Hub"

	// ClusterChannel carries notifications between instances.
	ClusterChannel = "cluster_events"
)

type clusterMessage struct {
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

// Hub tracks the notification sockets of this instance.
type Hub struct {
	clients    map[uuid.UUID][]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	// instance tags cluster messages so an instance skips its own.
	instance string
	rdb      *redis.Client
	logger   logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID][]*Client),
		instance:   uuid.NewString(),
		rdb:        rdb,
		logger:     log,
	}
}

// Run serves registrations until ctx is cancelled. Afterwards Register and
// Unregister return immediately.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info(hubModule, "Client registered", map[string]interface{}{"user_id": client.UserID.String()})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.UserID]
			for i, c := range clients {
				if c == client {
					h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
					close(client.Send)
					break
				}
			}
			if len(h.clients[client.UserID]) == 0 {
				delete(h.clients, client.UserID)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Connected reports how many sockets userID holds on this instance.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Send pushes a notification to every socket of userID, here and on the
// other instances.
func (h *Hub) Send(userID uuid.UUID, notification model.Notification) {
	data, err := Encode(TypeNotification, notification)
	if err != nil {
		h.logger.Error(hubModule, "Failed to encode notification", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliver(userID, data)

	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(struct {
		clusterMessage
		Instance string `json:"instance"`
	}{clusterMessage{TargetUserID: userID.String(), Message: data}, h.instance})

	if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
		h.logger.Warn(hubModule, "Cluster publish failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) deliver(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn(hubModule, "Client send buffer full, dropping message", map[string]interface{}{"user_id": userID.String()})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload struct {
				clusterMessage
				Instance string `json:"instance"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn(hubModule, "Malformed cluster message", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Instance == h.instance {
				continue
			}
			uid, err := uuid.Parse(payload.TargetUserID)
			if err != nil {
				continue
			}
			h.deliver(uid, payload.Message)
		}
	}
}
