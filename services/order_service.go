package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Actor is whoever issues an order operation. A zero Actor is an anonymous guest.
type Actor struct {
	UserID       uint
	Role         string
	RestaurantID uint
}

func (a Actor) IsGuest() bool { return a.UserID == 0 && a.Role == "" }

type ItemInput struct {
	MenuItemID uint   `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
	Notes      string `json:"notes"`
}

type CreateOrderInput struct {
	CustomerName string      `json:"customer_name"`
	TableNumber  *int        `json:"table_number"`
	Items        []ItemInput `json:"items" binding:"required,min=1,dive"`
}

type OrderFilter struct {
	Statuses []string
	From     *time.Time
	To       *time.Time
	UserID   *uint
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging values.
func (f *OrderFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// OrderService issues order writes. Status writes are plain field writes:
// the last writer wins unless the caller supplies an expected status.
type OrderService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{DB: db, Now: time.Now}
}

// InitialStatus is the status a new order starts in for a given actor.
func InitialStatus(actor Actor) (status, source string, err error) {
	switch {
	case actor.IsGuest():
		return models.OrderAwaitingApproval, models.SourceGuest, nil
	case actor.Role == models.RoleClient:
		return models.OrderAwaitingApproval, models.SourceClient, nil
	case actor.Role == models.RoleManager || actor.Role == models.RoleCashier:
		return models.OrderPending, models.SourceStaff, nil
	}
	return "", "", ErrForbidden
}

func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, restaurantID uint, in CreateOrderInput) (*models.Order, error) {
	const op = "create order"

	status, source, err := InitialStatus(actor)
	if err != nil {
		return nil, opError(op, err)
	}
	if len(in.Items) == 0 {
		return nil, opError(op, fmt.Errorf("%w: order has no items", ErrValidation))
	}
	if source == models.SourceGuest && strings.TrimSpace(in.CustomerName) == "" {
		return nil, opError(op, fmt.Errorf("%w: customer_name is required", ErrValidation))
	}

	order := models.Order{
		RestaurantID:  restaurantID,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		TableNumber:   in.TableNumber,
		Source:        source,
		Status:        status,
		PaymentStatus: models.PaymentUnpaid,
	}
	if source == models.SourceClient {
		uid := actor.UserID
		order.UserID = &uid
	}
	if source == models.SourceGuest {
		order.TrackingSecret = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The restaurant row lock serialises order numbering per tenant.
		var restaurant models.Restaurant
		if err := forUpdate(tx).First(&restaurant, restaurantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if restaurant.Status != models.RestaurantActive {
			return ErrNotAcceptingOrders
		}
		if source != models.SourceStaff && !restaurant.AcceptingOrders {
			return ErrNotAcceptingOrders
		}

		items, total, count, err := priceItems(tx, restaurantID, in.Items)
		if err != nil {
			return err
		}
		order.OrderItems = items
		order.TotalAmount = total
		order.ItemCount = count

		var last int
		if err := tx.Model(&models.Order{}).
			Where("restaurant_id = ?", restaurantID).
			Select("COALESCE(MAX(order_number), 0)").
			Row().Scan(&last); err != nil {
			return err
		}
		order.OrderNumber = last + 1

		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, opError(op, err)
	}

	OrderStatusWrites.WithLabelValues(order.Status).Inc()
	utils.InfoLogger.WithFields(utils.OrderFields(restaurantID, order.ID, order.Status)).
		Infof("Order #%d created (source=%s, items=%d)", order.OrderNumber, order.Source, order.ItemCount)
	return &order, nil
}

// forUpdate adds a row lock. SQLite has no row locks and serialises writers
// per database instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// priceItems resolves menu items of the restaurant and prices every line.
func priceItems(tx *gorm.DB, restaurantID uint, inputs []ItemInput) ([]models.OrderItem, float64, int, error) {
	ids := make([]uint, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity < 1 {
			return nil, 0, 0, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
		ids = append(ids, in.MenuItemID)
	}

	var menu []models.MenuItem
	if err := tx.Where("restaurant_id = ? AND id IN ?", restaurantID, ids).Find(&menu).Error; err != nil {
		return nil, 0, 0, err
	}
	byID := make(map[uint]models.MenuItem, len(menu))
	for _, m := range menu {
		byID[m.ID] = m
	}

	total := decimal.Zero
	count := 0
	items := make([]models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		m, ok := byID[in.MenuItemID]
		if !ok {
			return nil, 0, 0, fmt.Errorf("%w: menu item %d not found", ErrValidation, in.MenuItemID)
		}
		if !m.IsAvailable {
			return nil, 0, 0, fmt.Errorf("%w: %s is not available", ErrValidation, m.Name)
		}
		price := decimal.NewFromFloat(m.Price)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(in.Quantity))))
		count += in.Quantity
		items = append(items, models.OrderItem{
			MenuItemID: m.ID,
			Name:       m.Name,
			Price:      m.Price,
			Quantity:   in.Quantity,
			Notes:      strings.TrimSpace(in.Notes),
		})
	}
	return items, total.Round(2).InexactFloat64(), count, nil
}

func (s *OrderService) load(ctx context.Context, restaurantID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("OrderItems").
		Where("restaurant_id = ?", restaurantID).
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, restaurantID, orderID uint) (*models.Order, error) {
	order, err := s.load(ctx, restaurantID, orderID)
	if err != nil {
		return nil, opError("get order", err)
	}
	return order, nil
}

// UpdateStatus writes status. With an empty expected status the write is
// unconditional; otherwise it only applies while the order is still in expected.
func (s *OrderService) UpdateStatus(ctx context.Context, restaurantID, orderID uint, status, expected string) (*models.Order, error) {
	const op = "update order status"

	if !models.IsValidOrderStatus(status) {
		return nil, opError(op, fmt.Errorf("%w: %q", ErrInvalidStatus, status))
	}
	if expected != "" && !models.IsValidOrderStatus(expected) {
		return nil, opError(op, fmt.Errorf("%w: %q", ErrInvalidStatus, expected))
	}

	order, err := s.load(ctx, restaurantID, orderID)
	if err != nil {
		return nil, opError(op, err)
	}

	q := s.DB.WithContext(ctx).Model(&models.Order{ID: order.ID})
	if expected != "" {
		q = q.Where("status = ?", expected)
	}
	res := q.Updates(map[string]interface{}{"status": status, "updated_at": s.Now()})
	if res.Error != nil {
		return nil, opError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, opError(op, fmt.Errorf("%w: order is no longer %s", ErrConflict, expected))
	}

	OrderStatusWrites.WithLabelValues(status).Inc()
	utils.InfoLogger.WithFields(utils.OrderFields(restaurantID, orderID, status)).Info("Order status written")

	order, err = s.load(ctx, restaurantID, orderID)
	if err != nil {
		return nil, opError(op, err)
	}
	return order, nil
}

// transition moves an order from one of from to target. An order already in
// target is returned unchanged with changed=false.
func (s *OrderService) transition(ctx context.Context, order *models.Order, target string, from ...string) (bool, error) {
	if order.Status == target {
		return false, nil
	}
	allowed := false
	for _, f := range from {
		if order.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, fmt.Errorf("%w: order is %s", ErrConflict, order.Status)
	}

	res := s.DB.WithContext(ctx).Model(&models.Order{ID: order.ID}).
		Where("status IN ?", from).
		Updates(map[string]interface{}{"status": target, "updated_at": s.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// someone else moved it first
		var current models.Order
		if err := s.DB.WithContext(ctx).Select("status").First(&current, order.ID).Error; err != nil {
			return false, err
		}
		if current.Status == target {
			order.Status = target
			return false, nil
		}
		return false, fmt.Errorf("%w: order is %s", ErrConflict, current.Status)
	}

	OrderStatusWrites.WithLabelValues(target).Inc()
	order.Status = target
	return true, nil
}

// ApproveOrder moves awaiting_approval to pending. Approving an order that
// is already pending is a no-op.
func (s *OrderService) ApproveOrder(ctx context.Context, restaurantID, orderID uint) (*models.Order, bool, error) {
	return s.move(ctx, "approve order", restaurantID, orderID, models.OrderPending, models.OrderAwaitingApproval)
}

// RejectOrder moves awaiting_approval to rejected.
func (s *OrderService) RejectOrder(ctx context.Context, restaurantID, orderID uint) (*models.Order, bool, error) {
	return s.move(ctx, "reject order", restaurantID, orderID, models.OrderRejected, models.OrderAwaitingApproval)
}

func (s *OrderService) move(ctx context.Context, op string, restaurantID, orderID uint, target string, from ...string) (*models.Order, bool, error) {
	order, err := s.load(ctx, restaurantID, orderID)
	if err != nil {
		return nil, false, opError(op, err)
	}
	changed, err := s.transition(ctx, order, target, from...)
	if err != nil {
		return nil, false, opError(op, err)
	}
	if changed {
		utils.InfoLogger.WithFields(utils.OrderFields(restaurantID, orderID, target)).Infof("%s done", op)
		order, err = s.load(ctx, restaurantID, orderID)
		if err != nil {
			return nil, false, opError(op, err)
		}
	}
	return order, changed, nil
}

// MarkPaid sets the payment status to paid.
func (s *OrderService) MarkPaid(ctx context.Context, restaurantID, orderID uint) (*models.Order, error) {
	const op = "mark order paid"
	order, err := s.load(ctx, restaurantID, orderID)
	if err != nil {
		return nil, opError(op, err)
	}
	if order.PaymentStatus == models.PaymentPaid {
		return order, nil
	}
	if err := s.DB.WithContext(ctx).Model(&models.Order{ID: order.ID}).
		Updates(map[string]interface{}{"payment_status": models.PaymentPaid, "updated_at": s.Now()}).Error; err != nil {
		return nil, opError(op, err)
	}
	order.PaymentStatus = models.PaymentPaid
	return order, nil
}

func (s *OrderService) loadTracked(ctx context.Context, orderID uint, secret string) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("OrderItems").First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.TrackingSecret == "" || subtle.ConstantTimeCompare([]byte(order.TrackingSecret), []byte(secret)) != 1 {
		return nil, ErrNotFound
	}
	return &order, nil
}

// TrackOrder returns a guest order when secret matches.
func (s *OrderService) TrackOrder(ctx context.Context, orderID uint, secret string) (*models.Order, error) {
	order, err := s.loadTracked(ctx, orderID, secret)
	if err != nil {
		return nil, opError("track order", err)
	}
	return order, nil
}

// CancelGuestOrder lets a guest cancel while the kitchen has not started.
func (s *OrderService) CancelGuestOrder(ctx context.Context, orderID uint, secret string) (*models.Order, bool, error) {
	const op = "cancel order"
	order, err := s.loadTracked(ctx, orderID, secret)
	if err != nil {
		return nil, false, opError(op, err)
	}
	changed, err := s.transition(ctx, order, models.OrderCancelled, models.OrderAwaitingApproval, models.OrderPending)
	if err != nil {
		return nil, false, opError(op, err)
	}
	return order, changed, nil
}

// ListOrders returns one page of a restaurant's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, restaurantID uint, f OrderFilter) ([]models.Order, int64, error) {
	const op = "list orders"
	f.Normalize()
	for _, st := range f.Statuses {
		if !models.IsValidOrderStatus(st) {
			return nil, 0, opError(op, fmt.Errorf("%w: %q", ErrInvalidStatus, st))
		}
	}

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("restaurant_id = ?", restaurantID)
		if len(f.Statuses) > 0 {
			db = db.Where("status IN ?", f.Statuses)
		}
		if f.From != nil {
			db = db.Where("created_at >= ?", *f.From)
		}
		if f.To != nil {
			db = db.Where("created_at < ?", *f.To)
		}
		if f.UserID != nil {
			db = db.Where("user_id = ?", *f.UserID)
		}
		return db
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Order{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, opError(op, err)
	}

	var orders []models.Order
	if err := s.DB.WithContext(ctx).Scopes(scope).
		Preload("OrderItems").
		Order("created_at desc, id desc").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, opError(op, err)
	}
	return orders, total, nil
}

// MyOrders lists a client's orders, newest first.
func (s *OrderService) MyOrders(ctx context.Context, restaurantID, userID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).Preload("OrderItems").
		Where("restaurant_id = ? AND user_id = ?", restaurantID, userID).
		Order("created_at desc, id desc").
		Find(&orders).Error; err != nil {
		return nil, opError("list my orders", err)
	}
	return orders, nil
}

// OpenOrders lists a restaurant's orders that can still change, oldest
// first. A non-zero userID narrows the list to that client.
func (s *OrderService) OpenOrders(ctx context.Context, restaurantID, userID uint) ([]models.Order, error) {
	q := s.DB.WithContext(ctx).Preload("OrderItems").
		Where("restaurant_id = ? AND status IN ?", restaurantID, models.OpenOrderStatuses)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var orders []models.Order
	if err := q.Order("id asc").Find(&orders).Error; err != nil {
		return nil, opError("list open orders", err)
	}
	return orders, nil
}
