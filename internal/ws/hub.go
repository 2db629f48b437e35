package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Event types pushed to websocket clients.
const (
	EventStockUpdate     = "stock_update"
	EventQualityAlert    = "quality_alert"
	EventForecastUpdate  = "forecast_update"
	EventExpirationAlert = "expiration_alert"
)

// Event is the JSON envelope every client receives.
type Event struct {
	Type      string      `json:"type"`
	Action    string      `json:"action,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	User      *EventUser  `json:"user,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type EventUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Client is the part of a websocket connection the hub writes to.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Conn is a Client the hub can also read from.
type Conn interface {
	Client
	ReadMessage() (messageType int, p []byte, err error)
}

type Hub struct {
	clients    map[Client]bool
	Register   chan Client
	Unregister chan Client
	Broadcast  chan []byte
	mutex      sync.Mutex
	logger     *slog.Logger
	done       chan struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[Client]bool),
		Register:   make(chan Client),
		Unregister: make(chan Client),
		Broadcast:  make(chan []byte, 256),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
// Join and Leave stop blocking once Run has returned.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.clients {
				_ = conn.Close()
				delete(h.clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.clients[conn] = true
			h.mutex.Unlock()
			h.logger.Debug("ws client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				_ = conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					_ = conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish queues an event for every client. It never blocks: when the
// broadcast buffer is full the event is dropped and logged.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("ws marshal event", slog.String("type", event.Type), slog.Any("error", err))
		return
	}
	h.PublishRaw(msg)
}

// PublishRaw queues an already encoded event.
func (h *Hub) PublishRaw(msg []byte) {
	select {
	case h.Broadcast <- msg:
	default:
		h.logger.Warn("ws broadcast buffer full, dropping event")
	}
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Join adds c to the client set. It reports false once the hub has stopped.
func (h *Hub) Join(c Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Leave removes c from the client set; after the hub stops it does nothing.
func (h *Hub) Leave(c Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Serve is the websocket handler.
func (h *Hub) Serve(c *websocket.Conn) {
	h.ServeConn(c)
}

// ServeConn registers the connection and drains reads until the client goes
// away. A stopped hub closes the connection straight away.
func (h *Hub) ServeConn(c Conn) {
	if !h.Join(c) {
		_ = c.Close()
		return
	}
	defer h.Leave(c)
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
