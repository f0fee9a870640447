package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
)

// WSMessage is a JSON event sent to WebSocket clients.
type WSMessage struct {
	Type       string `json:"type"`
	RoundID    uint64 `json:"round_id"`
	Mode       string `json:"mode,omitempty"`
	User       string `json:"user,omitempty"`
	Side       string `json:"side,omitempty"`
	Amount     string `json:"amount,omitempty"`      // decimal tokens
	PriceStart string `json:"price_start,omitempty"` // decimal
	PriceFinal string `json:"price_final,omitempty"` // decimal
	TotalPaid  string `json:"total_paid,omitempty"`  // decimal tokens
	Refunded   bool   `json:"refunded,omitempty"`
}

// Hub manages WebSocket connections and broadcasts round lifecycle events
// to all connected clients. It implements engine.Events.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			slog.Info("ws client connected", "total", len(h.clients))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			// Write lock: a failed write evicts the connection, and the
			// ping goroutines read the map concurrently under RLock.
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Drop if buffer full to avoid blocking settlement.
	}
}

// RoundCreated implements engine.Events.
func (h *Hub) RoundCreated(r model.Round) {
	h.Broadcast(WSMessage{
		Type:       "round_created",
		RoundID:    r.RoundID,
		Mode:       string(r.Mode),
		PriceStart: formatPrice(r.PriceStart),
	})
}

// BetPlaced implements engine.Events.
func (h *Hub) BetPlaced(roundID uint64, user, side string, amount int64) {
	h.Broadcast(WSMessage{
		Type:    "bet_placed",
		RoundID: roundID,
		User:    user,
		Side:    side,
		Amount:  formatStroops(amount),
	})
}

// RoundResolved implements engine.Events.
func (h *Hub) RoundResolved(s model.Settlement) {
	h.Broadcast(WSMessage{
		Type:       "round_resolved",
		RoundID:    s.RoundID,
		Mode:       string(s.Mode),
		PriceStart: formatPrice(s.PriceStart),
		PriceFinal: formatPrice(s.PriceFinal),
		TotalPaid:  formatStroops(s.TotalPaid),
		Refunded:   s.Refunded,
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- conn

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
