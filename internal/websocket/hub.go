package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"tableau-assistant/internal/models"
)

const activityChannel = "assistant:activity"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans activity events out to connected observers. With a Redis client
// events flow through pub/sub so every backend instance rebroadcasts them;
// without one the fanout stays local. Each connection carries its own write
// lock: only one goroutine may write to a gorilla connection at a time.
type Hub struct {
	mu          sync.RWMutex
	connections map[*websocket.Conn]*sync.Mutex
	redisClient *redis.Client
	cancel      context.CancelFunc
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		connections: make(map[*websocket.Conn]*sync.Mutex),
		redisClient: redisClient,
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go h.subscribeToPubSub(ctx)
	}

	return h
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Publish sends an activity event to every connected observer. With Redis
// the event goes through pub/sub and is broadcast when it comes back.
func (h *Hub) Publish(msg models.ActivityMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	if h.redisClient != nil {
		if err := h.redisClient.Publish(context.Background(), activityChannel, string(data)).Err(); err != nil {
			log.Printf("Failed to publish activity to Redis: %v", err)
			h.broadcast(data)
		}
		return
	}

	h.broadcast(data)
}

func (h *Hub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.connections {
		conn.Close()
	}
	h.connections = make(map[*websocket.Conn]*sync.Mutex)
}

func (h *Hub) registerConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conn] = &sync.Mutex{}

	log.Printf("WebSocket connected (total: %d)", len(h.connections))
}

func (h *Hub) unregisterConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.connections, conn)

	log.Printf("WebSocket disconnected (total: %d)", len(h.connections))
}

func (h *Hub) subscribeToPubSub(ctx context.Context) {
	pubsub := h.redisClient.Subscribe(ctx, activityChannel)
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
			h.broadcast([]byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.connections))
	for conn, wmu := range h.connections {
		targets[conn] = wmu
	}
	h.mu.RUnlock()

	var dead []*websocket.Conn
	for conn, wmu := range targets {
		wmu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		wmu.Unlock()
		if err != nil {
			dead = append(dead, conn)
		}
	}

	// Drop connections that failed the write.
	for _, conn := range dead {
		h.unregisterConnection(conn)
	}
}
