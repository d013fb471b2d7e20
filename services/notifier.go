package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// OrderEvent is a detected status edge.
type OrderEvent struct {
	Order   models.Order
	Title   string
	Message string
}

// Notifier delivers an OrderEvent over one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event OrderEvent) error
}

// Dispatcher fans an event out to every notifier. A failing notifier is
// logged and does not stop the others.
type Dispatcher struct {
	notifiers []Notifier
}

func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

func (d *Dispatcher) Add(n Notifier) {
	d.notifiers = append(d.notifiers, n)
}

func (d *Dispatcher) Dispatch(ctx context.Context, order models.Order) {
	title, message := StatusMessage(&order)
	event := OrderEvent{Order: order, Title: title, Message: message}

	OrderNotifications.WithLabelValues(order.Status).Inc()
	utils.InfoLogger.WithFields(utils.OrderFields(order.RestaurantID, order.ID, order.Status)).
		Info("Order status notification")

	for _, n := range d.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			NotifierFailures.WithLabelValues(n.Name()).Inc()
			utils.ErrorLogger.WithFields(logrus.Fields{
				"notifier": n.Name(),
				"order_id": order.ID,
			}).Errorf("notify failed: %v", err)
		}
	}
}

// DBNotifier stores a Notification row for the order's registered user.
type DBNotifier struct {
	DB *gorm.DB
}

func (n *DBNotifier) Name() string { return "db" }

func (n *DBNotifier) Notify(ctx context.Context, event OrderEvent) error {
	notif := models.Notification{
		RestaurantID: event.Order.RestaurantID,
		UserID:       event.Order.UserID,
		OrderID:      event.Order.ID,
		Title:        event.Title,
		Message:      fmt.Sprintf("Order #%d: %s", event.Order.OrderNumber, event.Message),
	}
	return n.DB.WithContext(ctx).Create(&notif).Error
}

// HubNotifier pushes the notification to websocket subscribers.
type HubNotifier struct {
	Hub *kds.Hub
}

func (n *HubNotifier) Name() string { return "websocket" }

func (n *HubNotifier) Notify(_ context.Context, event OrderEvent) error {
	n.Hub.BroadcastOrderNotification(event.Order, event.Title, event.Message)
	return nil
}
