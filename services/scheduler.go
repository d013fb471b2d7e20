package services

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/yeremiapane/restaurant-ordering/database"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

const processedChangeRetention = 24 * time.Hour

// NewMaintenanceScheduler registers the hourly housekeeping jobs. The caller
// starts it with StartAsync and stops it with Stop.
func NewMaintenanceScheduler(db *gorm.DB) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.Local)

	if _, err := s.Every(1).Hour().Do(PurgeExpiredTokens); err != nil {
		return nil, err
	}
	if _, err := s.Every(1).Hour().Do(func() { PurgeChangeLog(db) }); err != nil {
		return nil, err
	}
	return s, nil
}

func PurgeExpiredTokens() {
	if n := utils.PurgeBlacklist(); n > 0 {
		utils.InfoLogger.Printf("Purged %d expired tokens from blacklist", n)
	}
}

func PurgeChangeLog(db *gorm.DB) {
	n, err := database.PurgeProcessedChanges(db, processedChangeRetention)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to purge processed changes: %v", err)
		return
	}
	if n > 0 {
		utils.InfoLogger.Printf("Purged %d processed change records", n)
	}
}
