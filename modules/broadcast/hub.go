package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/dddd2356/sunhan-websocket-backend/events"
)

// Client represents a connected WebSocket client. A client belongs to one
// member but may subscribe to any number of rooms.
type Client struct {
	ID       string
	MemberID string
	Conn     *websocket.Conn
}

// Hub manages WebSocket connections and room-scoped fan-out.
type Hub struct {
	clients       map[string]*Client         // clientID -> Client
	rooms         map[string]map[string]bool // roomID -> set of clientIDs
	subscriptions map[string]map[string]bool // clientID -> set of roomIDs
	register      chan *Client
	unregister    chan *Client
	broadcast     chan *Frame
	done          chan struct{}
	mu            sync.RWMutex
}

// Frame is the structure sent to WebSocket clients. RoomID selects the
// audience: empty means every connected client.
type Frame struct {
	Type               string                 `json:"type"`
	RoomID             string                 `json:"room_id,omitempty"`
	Message            *events.MessagePayload `json:"message,omitempty"`
	MessageID          string                 `json:"message_id,omitempty"`
	MemberID           string                 `json:"member_id,omitempty"`
	Action             string                 `json:"action,omitempty"`
	ActiveMembers      []string               `json:"active_members,omitempty"`
	UnreadCounts       map[string]int64       `json:"unread_counts,omitempty"`
	LastMessageContent string                 `json:"last_message_content,omitempty"`
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[string]*Client),
		rooms:         make(map[string]map[string]bool),
		subscriptions: make(map[string]map[string]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan *Frame, 256),
		done:          make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case frame := <-h.broadcast:
			h.handleBroadcast(frame)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// closeAllClients closes all connected client connections.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
	h.subscriptions = make(map[string]map[string]bool)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	h.subscriptions[client.ID] = make(map[string]bool)
	log.Printf("[hub] Client %s (member %s) registered", client.ID, client.MemberID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for roomID := range h.subscriptions[client.ID] {
		h.dropSubscription(client.ID, roomID)
	}
	delete(h.subscriptions, client.ID)
	delete(h.clients, client.ID)
	log.Printf("[hub] Client %s (member %s) unregistered", client.ID, client.MemberID)
}

// dropSubscription removes one room subscription. Caller holds the lock.
func (h *Hub) dropSubscription(clientID, roomID string) {
	if h.rooms[roomID] != nil {
		delete(h.rooms[roomID], clientID)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) handleBroadcast(frame *Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[hub] Failed to marshal broadcast frame: %v", err)
		return
	}

	if frame.RoomID == "" {
		for _, client := range h.clients {
			h.sendToClient(client, data)
		}
		return
	}

	if clientIDs, ok := h.rooms[frame.RoomID]; ok {
		for clientID := range clientIDs {
			if client, ok := h.clients[clientID]; ok {
				h.sendToClient(client, data)
			}
		}
	}
}

func (h *Hub) sendToClient(client *Client, data []byte) {
	if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast queues a frame for delivery to the frame's room.
func (h *Hub) Broadcast(frame *Frame) {
	h.broadcast <- frame
}

// Subscribe adds a room to the client's subscription set.
func (h *Hub) Subscribe(clientID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][clientID] = true
	h.subscriptions[clientID][roomID] = true
	log.Printf("[hub] Client %s subscribed to room %s", clientID, roomID)
}

// Unsubscribe removes a room from the client's subscription set.
func (h *Hub) Unsubscribe(clientID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return
	}
	h.dropSubscription(clientID, roomID)
	delete(h.subscriptions[clientID], roomID)
	log.Printf("[hub] Client %s unsubscribed from room %s", clientID, roomID)
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of clients subscribed to a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.rooms[roomID]; ok {
		return len(clients)
	}
	return 0
}
