package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-ordering/models"
	"gorm.io/gorm"
)

const shortCodeLength = 6

const shortCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateShortCode returns shortCodeLength upper-case alphanumerics drawn
// from a random uuid.
func GenerateShortCode() string {
	id := uuid.New()
	var b strings.Builder
	for i := 0; i < shortCodeLength; i++ {
		b.WriteByte(shortCodeAlphabet[int(id[i])%len(shortCodeAlphabet)])
	}
	return b.String()
}

type CreateRestaurantInput struct {
	Name      string `json:"name" binding:"required"`
	ShortCode string `json:"short_code"`
	Plan      string `json:"plan"`
}

type UpdateRestaurantInput struct {
	Name            *string `json:"name"`
	AcceptingOrders *bool   `json:"accepting_orders"`
	Status          *string `json:"status"`
}

type RestaurantService struct {
	DB *gorm.DB
}

func NewRestaurantService(db *gorm.DB) *RestaurantService {
	return &RestaurantService{DB: db}
}

// FindByShortCode resolves a guest routing key. Matching ignores case.
func (s *RestaurantService) FindByShortCode(ctx context.Context, code string) (*models.Restaurant, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, opError("validate restaurant code", ErrNotFound)
	}
	var r models.Restaurant
	err := s.DB.WithContext(ctx).Where("short_code = ?", code).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, opError("validate restaurant code", ErrNotFound)
	}
	if err != nil {
		return nil, opError("validate restaurant code", err)
	}
	return &r, nil
}

func (s *RestaurantService) Get(ctx context.Context, id uint) (*models.Restaurant, error) {
	var r models.Restaurant
	err := s.DB.WithContext(ctx).First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, opError("get restaurant", ErrNotFound)
	}
	if err != nil {
		return nil, opError("get restaurant", err)
	}
	return &r, nil
}

// Create stores a new restaurant, generating a short code when none is given.
func (s *RestaurantService) Create(ctx context.Context, in CreateRestaurantInput) (*models.Restaurant, error) {
	const op = "create restaurant"

	plan := in.Plan
	if plan == "" {
		plan = "free"
	}
	if plan != "free" && plan != "basic" && plan != "pro" {
		return nil, opError(op, fmt.Errorf("%w: unknown plan %q", ErrValidation, plan))
	}

	code := strings.ToUpper(strings.TrimSpace(in.ShortCode))
	explicit := code != ""
	for attempt := 0; attempt < 5; attempt++ {
		if !explicit {
			code = GenerateShortCode()
		}
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Restaurant{}).Where("short_code = ?", code).Count(&count).Error; err != nil {
			return nil, opError(op, err)
		}
		if count == 0 {
			r := models.Restaurant{
				Name:            strings.TrimSpace(in.Name),
				ShortCode:       code,
				Status:          models.RestaurantActive,
				Plan:            plan,
				AcceptingOrders: true,
			}
			if err := s.DB.WithContext(ctx).Create(&r).Error; err != nil {
				return nil, opError(op, err)
			}
			return &r, nil
		}
		if explicit {
			return nil, opError(op, fmt.Errorf("%w: short code %s is taken", ErrConflict, code))
		}
	}
	return nil, opError(op, fmt.Errorf("%w: could not allocate a short code", ErrConflict))
}

func (s *RestaurantService) Update(ctx context.Context, id uint, in UpdateRestaurantInput) (*models.Restaurant, error) {
	const op = "update restaurant"
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, opError(op, fmt.Errorf("%w: name is required", ErrValidation))
		}
		updates["name"] = name
	}
	if in.AcceptingOrders != nil {
		updates["accepting_orders"] = *in.AcceptingOrders
	}
	if in.Status != nil {
		if *in.Status != models.RestaurantActive && *in.Status != models.RestaurantInactive {
			return nil, opError(op, fmt.Errorf("%w: unknown status %q", ErrValidation, *in.Status))
		}
		updates["status"] = *in.Status
	}
	if len(updates) == 0 {
		return r, nil
	}
	if err := s.DB.WithContext(ctx).Model(&models.Restaurant{ID: r.ID}).Updates(updates).Error; err != nil {
		return nil, opError(op, err)
	}
	return s.Get(ctx, id)
}

// AvailableMenu lists the items a guest may order.
func (s *RestaurantService) AvailableMenu(ctx context.Context, restaurantID uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := s.DB.WithContext(ctx).
		Where("restaurant_id = ? AND is_available = ?", restaurantID, true).
		Order("category, name").
		Find(&items).Error; err != nil {
		return nil, opError("list menu", err)
	}
	return items, nil
}
