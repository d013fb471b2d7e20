package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/database"
	"github.com/yeremiapane/restaurant-ordering/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type fixture struct {
	Restaurant models.Restaurant
	Rice       models.MenuItem
	Tea        models.MenuItem
	SoldOut    models.MenuItem
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{
		Restaurant: models.Restaurant{
			Name: "Warung Senja", ShortCode: "SENJA1", Status: models.RestaurantActive,
			Plan: "basic", AcceptingOrders: true,
		},
	}
	require.NoError(t, db.Create(&f.Restaurant).Error)

	f.Rice = models.MenuItem{RestaurantID: f.Restaurant.ID, Name: "Nasi Goreng", Category: "Food", Price: 25000, IsAvailable: true}
	f.Tea = models.MenuItem{RestaurantID: f.Restaurant.ID, Name: "Es Teh", Category: "Drinks", Price: 5000, IsAvailable: true}
	f.SoldOut = models.MenuItem{RestaurantID: f.Restaurant.ID, Name: "Sate Ayam", Category: "Food", Price: 30000, IsAvailable: false}
	for _, item := range []*models.MenuItem{&f.Rice, &f.Tea, &f.SoldOut} {
		require.NoError(t, db.Create(item).Error)
	}
	return f
}

func (f fixture) simpleOrder() CreateOrderInput {
	return CreateOrderInput{
		CustomerName: "Budi",
		Items: []ItemInput{
			{MenuItemID: f.Rice.ID, Quantity: 2, Notes: "extra spicy"},
			{MenuItemID: f.Tea.ID, Quantity: 1},
		},
	}
}

func clientActor(f fixture, userID uint) Actor {
	return Actor{UserID: userID, Role: models.RoleClient, RestaurantID: f.Restaurant.ID}
}

func cashierActor(f fixture) Actor {
	return Actor{UserID: 99, Role: models.RoleCashier, RestaurantID: f.Restaurant.ID}
}
