package client

import (
	"github.com/yeremiapane/restaurant-ordering/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Cache is the local mirror of server data. Remote data always overwrites it.
type Cache struct {
	DB *gorm.DB
}

// OpenCache opens (or creates) the sqlite file at path.
func OpenCache(path string) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return NewCache(db)
}

func NewCache(db *gorm.DB) (*Cache, error) {
	if err := db.AutoMigrate(&models.MenuItem{}, &models.Order{}, &models.OrderItem{}, &models.Preference{}); err != nil {
		return nil, err
	}
	return &Cache{DB: db}, nil
}

func (c *Cache) MenuItems(restaurantID uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := c.DB.Where("restaurant_id = ?", restaurantID).Order("category, name").Find(&items).Error
	return items, err
}

// ReplaceMenu swaps a restaurant's cached menu for items.
func (c *Cache) ReplaceMenu(restaurantID uint, items []models.MenuItem) error {
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("restaurant_id = ?", restaurantID).Delete(&models.MenuItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (c *Cache) UserOrders(userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := c.DB.Preload("OrderItems").
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&orders).Error
	return orders, err
}

// OpenOrders returns cached orders that can still change status.
func (c *Cache) OpenOrders() ([]models.Order, error) {
	var orders []models.Order
	err := c.DB.Where("status IN ?", models.OpenOrderStatuses).Order("id").Find(&orders).Error
	return orders, err
}

func (c *Cache) Order(id uint) (*models.Order, error) {
	var order models.Order
	if err := c.DB.Preload("OrderItems").First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ReplaceUserOrders swaps the user's cached orders for orders.
func (c *Cache) ReplaceUserOrders(userID uint, orders []models.Order) error {
	return c.DB.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Order{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := tx.Where("order_id IN ?", ids).Delete(&models.OrderItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", ids).Delete(&models.Order{}).Error; err != nil {
				return err
			}
		}
		for i := range orders {
			if err := putOrder(tx, &orders[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutOrder overwrites one cached order with a server snapshot.
func (c *Cache) PutOrder(order *models.Order) error {
	return c.DB.Transaction(func(tx *gorm.DB) error {
		return putOrder(tx, order)
	})
}

func putOrder(tx *gorm.DB, order *models.Order) error {
	if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.Order{}, order.ID).Error; err != nil {
		return err
	}
	// a stale row holding the same number loses to the server
	if err := tx.Where("restaurant_id = ? AND order_number = ?", order.RestaurantID, order.OrderNumber).
		Delete(&models.Order{}).Error; err != nil {
		return err
	}
	return tx.Create(order).Error
}
