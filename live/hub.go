package live

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event — сообщение, рассылаемое всем подключённым клиентам.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub раздаёт события админки всем websocket-клиентам. Комнат нет:
// каждое событие видят все подключённые.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan []byte

	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte, 16),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.logger.Debug("websocket client registered", slog.Int("total", len(h.clients)))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				h.logger.Debug("websocket client unregistered", slog.Int("total", len(h.clients)))
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.RLock()
			for client := range h.clients {
				// Медленный клиент пропускает событие, а не блокирует хаб.
				client.trySend(message)
			}
			h.mu.RUnlock()
		}
	}
}

// Publish реализует services.EventPublisher.
func (h *Hub) Publish(eventType string, payload interface{}) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		h.logger.Error("failed to marshal live event", slog.String("type", eventType), slog.Any("error", err))
		return
	}
	select {
	case h.Broadcast <- data:
	default:
		h.logger.Warn("live broadcast channel full, dropping event", slog.String("type", eventType))
	}
}
