package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"smartbin-backend/internal/models"
)

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients (userID -> Client)
	clients map[string]*Client

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] Client connected: %s (%s), %d total", client.UserID, client.UserRole, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.UserID]; ok {
				delete(h.clients, client.UserID)
				close(client.send)
				log.Printf("🔴 [WEBSOCKET] Client disconnected: %s, %d remaining", client.UserID, len(h.clients))
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToAll sends a message to every connected dashboard client
func (h *Hub) BroadcastToAll(data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dataBytes, err := json.Marshal(data)
	if err != nil {
		log.Printf("❌ Failed to marshal broadcast message: %v", err)
		return
	}

	for _, client := range h.clients {
		select {
		case client.send <- dataBytes:
		default:
			// Buffer full, skip this client
		}
	}
}

// BroadcastAlert pushes a newly raised alert to connected dashboards
func (h *Hub) BroadcastAlert(alert models.Alert) {
	h.BroadcastToAll(map[string]interface{}{
		"type": "alert_raised",
		"data": alert.ToAlertResponse(),
	})
}

// BroadcastBinUpdate pushes a device telemetry update to connected dashboards
func (h *Hub) BroadcastBinUpdate(bin models.Bin) {
	h.BroadcastToAll(map[string]interface{}{
		"type": "bin_update",
		"data": bin.ToBinResponse(),
	})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
