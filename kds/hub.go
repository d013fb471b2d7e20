package kds

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

// Event types
const (
	EventOrderUpdate       = "order_update"
	EventOrderNotification = "order_notification"
	EventMenuUpdate        = "menu_update"
	EventRestaurantUpdate  = "restaurant_update"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

// ErrSlowClient is returned when a subscriber's send queue is full. The
// subscriber is dropped.
var ErrSlowClient = errors.New("websocket client too slow")

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Scope decides which events a subscriber receives. Staff see every order
// of their restaurant, clients only their own orders and guests a single order.
type Scope struct {
	RestaurantID uint
	Role         string
	UserID       uint
	OrderID      uint
}

func (s Scope) wantsOrder(order *models.Order) bool {
	if order.RestaurantID != s.RestaurantID {
		return false
	}
	if s.OrderID != 0 {
		return order.ID == s.OrderID
	}
	if models.IsStaffRole(s.Role) {
		return true
	}
	return order.UserID != nil && *order.UserID == s.UserID
}

type Client struct {
	conn  Conn
	scope Scope
	send  chan []byte
}

// Hub holds every websocket subscriber, partitioned by restaurant. Each
// subscriber has its own send queue and writer goroutine, so a stalled peer
// never holds up the others.
type Hub struct {
	clients map[*Client]struct{}
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds conn with scope and returns the handle used to unregister.
func (h *Hub) Register(conn Conn, scope Scope) *Client {
	c := &Client{conn: conn, scope: scope, send: make(chan []byte, sendBuffer)}
	h.mutex.Lock()
	h.clients[c] = struct{}{}
	h.mutex.Unlock()
	go h.writePump(c)
	return c
}

// Unregister removes the client. Its connection is closed once the queued
// messages are flushed.
func (h *Hub) Unregister(c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writePump(c *Client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error writing to client (role=%s): %v", c.scope.Role, err)
			h.Unregister(c)
			return
		}
	}
}

// enqueueLocked queues data for c and drops c when its queue is full.
func (h *Hub) enqueueLocked(c *Client, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		utils.ErrorLogger.Printf("Dropping slow client (role=%s, restaurant=%d)", c.scope.Role, c.scope.RestaurantID)
		h.removeLocked(c)
		return false
	}
}

// Send queues msg for a single client, ahead of any later broadcast.
func (h *Hub) Send(c *Client, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[c]; !ok {
		return nil
	}
	if !h.enqueueLocked(c, data) {
		return ErrSlowClient
	}
	return nil
}

// Count returns the number of subscribers of a restaurant.
func (h *Hub) Count(restaurantID uint) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	n := 0
	for c := range h.clients {
		if c.scope.RestaurantID == restaurantID {
			n++
		}
	}
	return n
}

// BroadcastOrderUpdate pushes the full order snapshot to interested subscribers.
func (h *Hub) BroadcastOrderUpdate(order models.Order) {
	h.broadcast(Message{Event: EventOrderUpdate, Data: order}, func(s Scope) bool {
		return s.wantsOrder(&order)
	})
}

// BroadcastOrderNotification pushes a status-edge notification.
func (h *Hub) BroadcastOrderNotification(order models.Order, title, message string) {
	h.broadcast(Message{
		Event: EventOrderNotification,
		Data: map[string]interface{}{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"title":        title,
			"message":      message,
		},
	}, func(s Scope) bool {
		return s.wantsOrder(&order)
	})
}

// BroadcastToRestaurant sends msg to every subscriber of a restaurant.
func (h *Hub) BroadcastToRestaurant(restaurantID uint, msg Message) {
	h.broadcast(msg, func(s Scope) bool {
		return s.RestaurantID == restaurantID && s.OrderID == 0
	})
}

func (h *Hub) broadcast(msg Message, match func(Scope) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		if match(c.scope) {
			h.enqueueLocked(c, data)
		}
	}
}
