package models

import "time"

// Preference is a plain key/value blob scoped to an owner, e.g. a user's cart
// or a restaurant's printer pairing.
type Preference struct {
	ID        uint      `gorm:"primaryKey"`
	Owner     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_owner_key"`
	Key       string    `gorm:"column:pref_key;type:varchar(100);not null;uniqueIndex:idx_owner_key"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
