package services

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a WebSocket client
type Client struct {
	ID       uint
	UserType string
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mutex      sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			utils.Logger.Info("ws client connected", zap.Uint("id", client.ID), zap.String("type", client.UserType))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			utils.Logger.Info("ws client disconnected", zap.Uint("id", client.ID))

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastToUser sends a message to a specific account. Clients and vendors
// share the id space only within their own type, so both must match.
// Stale clients are evicted under the write lock; the read lock alone cannot
// cover map mutation when handler goroutines broadcast concurrently.
func (h *Hub) BroadcastToUser(userID uint, userType string, message []byte) {
	h.mutex.RLock()
	var stale []*Client
	for client := range h.clients {
		if client.ID == userID && client.UserType == userType {
			select {
			case client.Send <- message:
			default:
				stale = append(stale, client)
			}
		}
	}
	h.mutex.RUnlock()

	for _, client := range stale {
		h.evict(client)
	}
}

// evict drops a client whose send buffer is wedged. Membership is re-checked
// under the write lock so a concurrent eviction cannot close Send twice.
func (h *Hub) evict(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

// BroadcastToAll sends a message to all connected clients
func (h *Hub) BroadcastToAll(message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			utils.Logger.Warn("ws send channel full, skipping", zap.Uint("id", client.ID))
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocketMessage is the envelope for every hub message.
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// BookingOffer notifies a vendor of a new dispatch offer.
type BookingOffer struct {
	RequestID  uint    `json:"requestId"`
	BookingID  uint    `json:"bookingId"`
	PickupAddr string  `json:"pickupAddress"`
	DropAddr   string  `json:"dropAddress"`
	DistanceKm float64 `json:"distanceKm"`
	EtaMins    int     `json:"etaMins"`
	Amount     float64 `json:"amount"`
	ExpiresAt  int64   `json:"expiresAt"`
}

// BookingStatusUpdate notifies either party of a booking lifecycle change.
type BookingStatusUpdate struct {
	BookingID uint   `json:"bookingId"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// VendorLocationUpdate streams the assigned vendor's position to the client.
type VendorLocationUpdate struct {
	BookingID           uint    `json:"bookingId"`
	VendorID            uint    `json:"vendorId"`
	Lat                 float64 `json:"lat"`
	Lng                 float64 `json:"lng"`
	DistanceCoveredKm   float64 `json:"distanceCoveredKm"`
	DistanceRemainingKm float64 `json:"distanceRemainingKm"`
}

// SendBookingOffer pushes a dispatch offer to a vendor.
func (h *Hub) SendBookingOffer(vendorID uint, offer BookingOffer) {
	h.send(vendorID, "vendor", WebSocketMessage{Type: "booking_offer", Data: offer})
}

// SendBookingStatusToClient pushes a lifecycle change to the booking owner.
func (h *Hub) SendBookingStatusToClient(clientID uint, update BookingStatusUpdate) {
	h.send(clientID, "client", WebSocketMessage{Type: "booking_status", Data: update})
}

// SendBookingStatusToVendor pushes a lifecycle change to the assigned vendor.
func (h *Hub) SendBookingStatusToVendor(vendorID uint, update BookingStatusUpdate) {
	h.send(vendorID, "vendor", WebSocketMessage{Type: "booking_status", Data: update})
}

// SendVendorLocationToClient streams trip progress to the booking owner.
func (h *Hub) SendVendorLocationToClient(clientID uint, update VendorLocationUpdate) {
	h.send(clientID, "client", WebSocketMessage{Type: "vendor_location", Data: update})
}

func (h *Hub) send(userID uint, userType string, message WebSocketMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		utils.Logger.Error("ws marshal failed", zap.Error(err))
		return
	}
	h.BroadcastToUser(userID, userType, data)
}

// HandleWebSocket handles WebSocket connections
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, userType string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:       userID,
		UserType: userType,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      hub,
	}

	client.Hub.register <- client

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.Logger.Warn("ws read error", zap.Error(err))
			}
			break
		}
		// Inbound traffic is ignored; all mutations go through the REST API.
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			utils.Logger.Warn("ws write error", zap.Error(err))
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
