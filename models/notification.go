package models

import (
	"time"
)

type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"not null;index" json:"restaurant_id"`
	UserID       *uint     `gorm:"index" json:"user_id,omitempty"`
	OrderID      uint      `gorm:"index" json:"order_id"`
	Title        string    `gorm:"type:varchar(100)" json:"title"`
	Message      string    `gorm:"type:text;not null" json:"message"`
	Read         bool      `gorm:"column:is_read;not null" json:"read"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}
