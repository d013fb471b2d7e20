package database

import (
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// AllModels is every table owned by the service.
func AllModels() []interface{} {
	return []interface{}{
		&models.Restaurant{},
		&models.User{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Notification{},
		&models.Preference{},
		&models.DBChange{},
	}
}

// Migrate runs AutoMigrate and installs the change-feed callbacks.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	return RegisterChangeCallbacks(db)
}
