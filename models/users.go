package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleCook    = "cook"
	RoleClient  = "client"
)

const (
	UserActive    = "active"
	UserInactive  = "inactive"
	UserSuspended = "suspended"
)

type User struct {
	ID                 uint                      `gorm:"primaryKey" json:"id"`
	Username           string                    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Name               string                    `gorm:"type:varchar(255);not null" json:"name"`
	Email              string                    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone              string                    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Password           string                    `gorm:"type:varchar(255);not null" json:"-"`
	Role               string                    `gorm:"type:varchar(20);not null" json:"role"`
	Status             string                    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	RestaurantIDs      datatypes.JSONSlice[uint] `json:"restaurant_ids"`
	ActiveRestaurantID uint                      `gorm:"index" json:"active_restaurant_id"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

func IsValidRole(role string) bool {
	switch role {
	case RoleManager, RoleCashier, RoleCook, RoleClient:
		return true
	}
	return false
}

func IsStaffRole(role string) bool {
	return role == RoleManager || role == RoleCashier || role == RoleCook
}

func IsValidUserStatus(status string) bool {
	return status == UserActive || status == UserInactive || status == UserSuspended
}

// BelongsTo reports whether restaurantID is one of the user's restaurants.
func (u *User) BelongsTo(restaurantID uint) bool {
	for _, id := range u.RestaurantIDs {
		if id == restaurantID {
			return true
		}
	}
	return false
}

// DetachRestaurant removes restaurantID from the user's list and moves the
// active restaurant to the first remaining one.
func (u *User) DetachRestaurant(restaurantID uint) {
	kept := make([]uint, 0, len(u.RestaurantIDs))
	for _, id := range u.RestaurantIDs {
		if id != restaurantID {
			kept = append(kept, id)
		}
	}
	u.RestaurantIDs = kept
	if u.ActiveRestaurantID == restaurantID {
		u.ActiveRestaurantID = 0
		if len(kept) > 0 {
			u.ActiveRestaurantID = kept[0]
		}
	}
}
