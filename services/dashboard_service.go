package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-ordering/models"
	"gorm.io/gorm"
)

const topItemsLimit = 5

type TopItem struct {
	MenuItemID uint    `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   int64   `json:"quantity"`
	Revenue    float64 `json:"revenue"`
}

type DashboardStats struct {
	From          time.Time        `json:"from"`
	To            time.Time        `json:"to"`
	TotalOrders   int64            `json:"total_orders"`
	PaidOrders    int64            `json:"paid_orders"`
	Revenue       float64          `json:"revenue"`
	StatusCounts  map[string]int64 `json:"status_counts"`
	TopItems      []TopItem        `json:"top_items"`
	AwaitingCount int64            `json:"awaiting_approval"`
}

type DashboardService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{DB: db, Now: time.Now}
}

// Range parses YYYY-MM-DD bounds. Both ends are inclusive days; empty
// values default to today.
func (s *DashboardService) Range(from, to string) (time.Time, time.Time, error) {
	now := s.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	start, end := today, today
	var err error
	if from != "" {
		if start, err = time.ParseInLocation("2006-01-02", from, now.Location()); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrValidation)
		}
	}
	if to != "" {
		if end, err = time.ParseInLocation("2006-01-02", to, now.Location()); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrValidation)
		}
	} else if from != "" {
		end = start
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to is before from", ErrValidation)
	}
	return start, end.AddDate(0, 0, 1), nil
}

// Stats summarises orders created in [from, to).
func (s *DashboardService) Stats(ctx context.Context, restaurantID uint, from, to time.Time) (*DashboardStats, error) {
	const op = "load dashboard"

	stats := &DashboardStats{
		From:         from,
		To:           to,
		StatusCounts: make(map[string]int64, len(models.OrderStatuses)),
		TopItems:     []TopItem{},
	}
	for _, st := range models.OrderStatuses {
		stats.StatusCounts[st] = 0
	}

	inRange := func(db *gorm.DB) *gorm.DB {
		return db.Where("orders.restaurant_id = ? AND orders.created_at >= ? AND orders.created_at < ?", restaurantID, from, to)
	}
	db := s.DB.WithContext(ctx)

	var counts []struct {
		Status string
		Total  int64
	}
	if err := db.Model(&models.Order{}).Scopes(inRange).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, opError(op, err)
	}
	for _, c := range counts {
		stats.StatusCounts[c.Status] = c.Total
		stats.TotalOrders += c.Total
	}
	stats.AwaitingCount = stats.StatusCounts[models.OrderAwaitingApproval]

	var paid struct {
		Orders  int64
		Revenue float64
	}
	if err := db.Model(&models.Order{}).Scopes(inRange).
		Where("payment_status = ?", models.PaymentPaid).
		Select("COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS revenue").
		Scan(&paid).Error; err != nil {
		return nil, opError(op, err)
	}
	stats.PaidOrders = paid.Orders
	stats.Revenue = paid.Revenue

	if err := db.Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Scopes(inRange).
		Where("orders.status NOT IN ?", []string{models.OrderCancelled, models.OrderRejected}).
		Select("order_items.menu_item_id AS menu_item_id, order_items.name AS name, " +
			"SUM(order_items.quantity) AS quantity, SUM(order_items.quantity * order_items.price) AS revenue").
		Group("order_items.menu_item_id, order_items.name").
		Order("quantity DESC, name").
		Limit(topItemsLimit).
		Scan(&stats.TopItems).Error; err != nil {
		return nil, opError(op, err)
	}
	return stats, nil
}
