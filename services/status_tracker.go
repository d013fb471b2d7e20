package services

import (
	"sync"

	"github.com/yeremiapane/restaurant-ordering/models"
)

// NotifiableStatuses are the statuses whose arrival is announced.
var NotifiableStatuses = map[string]bool{
	models.OrderPreparing: true,
	models.OrderReady:     true,
	models.OrderCompleted: true,
	models.OrderRejected:  true,
}

// StatusTracker remembers the last status seen per order and detects edges.
// It lives in memory only; a restart forgets everything.
type StatusTracker struct {
	mu   sync.Mutex
	last map[uint]string
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{last: make(map[uint]string)}
}

// Observe records status for orderID and reports whether a notification
// should fire. The first observation of an order only seeds the tracker.
func (t *StatusTracker) Observe(orderID uint, status string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.last[orderID]
	t.last[orderID] = status
	if !seen {
		return false
	}
	return prev != status && NotifiableStatuses[status]
}

// Seed records status without evaluating an edge.
func (t *StatusTracker) Seed(orderID uint, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[orderID] = status
}

// Forget drops an order, e.g. once it left the view.
func (t *StatusTracker) Forget(orderID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, orderID)
}

func (t *StatusTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

// StatusMessage is the human text for a notifiable status.
func StatusMessage(order *models.Order) (title, message string) {
	switch order.Status {
	case models.OrderPreparing:
		return "Order in the kitchen", "Your order is being prepared."
	case models.OrderReady:
		return "Order ready", "Your order is ready for pickup."
	case models.OrderCompleted:
		return "Order completed", "Thank you! Your order is completed."
	case models.OrderRejected:
		return "Order rejected", "Sorry, the restaurant could not accept your order."
	}
	return "Order update", "Your order status changed to " + order.Status + "."
}
