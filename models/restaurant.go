package models

import "time"

const (
	RestaurantActive   = "active"
	RestaurantInactive = "inactive"
)

type Restaurant struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	ShortCode       string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"short_code"`
	Status          string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Plan            string    `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	AcceptingOrders bool      `gorm:"not null" json:"accepting_orders"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

// PublicView is what guests see after validating a short code.
func (r *Restaurant) PublicView() map[string]interface{} {
	return map[string]interface{}{
		"id":               r.ID,
		"name":             r.Name,
		"short_code":       r.ShortCode,
		"accepting_orders": r.AcceptingOrders,
	}
}
