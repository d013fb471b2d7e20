package models

import (
	"fmt"
	"time"
)

const (
	OrderAwaitingApproval = "awaiting_approval"
	OrderPending          = "pending"
	OrderPreparing        = "preparing"
	OrderReady            = "ready"
	OrderCompleted        = "completed"
	OrderCancelled        = "cancelled"
	OrderRejected         = "rejected"
)

const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

const (
	SourceStaff  = "staff"
	SourceClient = "client"
	SourceGuest  = "guest"
)

// OrderStatuses lists every known order status.
var OrderStatuses = []string{
	OrderAwaitingApproval,
	OrderPending,
	OrderPreparing,
	OrderReady,
	OrderCompleted,
	OrderCancelled,
	OrderRejected,
}

// OpenOrderStatuses are the statuses an order can still move on from.
var OpenOrderStatuses = []string{
	OrderAwaitingApproval,
	OrderPending,
	OrderPreparing,
	OrderReady,
}

func IsValidOrderStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Order struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	RestaurantID   uint        `gorm:"not null;index;uniqueIndex:idx_restaurant_order_number,priority:1" json:"restaurant_id"`
	OrderNumber    int         `gorm:"not null;uniqueIndex:idx_restaurant_order_number,priority:2" json:"order_number"`
	UserID         *uint       `gorm:"index" json:"user_id,omitempty"`
	CustomerName   string      `gorm:"type:varchar(255)" json:"customer_name"`
	TableNumber    *int        `json:"table_number,omitempty"`
	Source         string      `gorm:"type:varchar(20);not null" json:"source"`
	Status         string      `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus  string      `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	TotalAmount    float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	ItemCount      int         `gorm:"not null;default:0" json:"item_count"`
	TrackingSecret string      `gorm:"type:varchar(64)" json:"-"`
	CreatedAt      time.Time   `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"not null" json:"updated_at"`
	OrderItems     []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// DisplayName is the name printed on tickets and shown to staff.
func (o *Order) DisplayName() string {
	if o.CustomerName != "" {
		return o.CustomerName
	}
	if o.UserID != nil {
		return fmt.Sprintf("Client-%d", *o.UserID)
	}
	return "Walk-in"
}

// TrackingPath is the anonymous tracking path for guest orders.
func (o *Order) TrackingPath() string {
	if o.TrackingSecret == "" {
		return ""
	}
	return fmt.Sprintf("/track/%d/%s", o.ID, o.TrackingSecret)
}
