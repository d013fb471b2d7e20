package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

type MenuController struct {
	DB *gorm.DB
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db}
}

func (mc *MenuController) findItem(c *gin.Context) (*models.MenuItem, bool) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return nil, false
	}
	var item models.MenuItem
	if err := mc.DB.Where("restaurant_id = ?", currentRestaurantID(c)).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("menu item not found"))
			return nil, false
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return &item, true
}

// GetAllMenus lists the tenant's menu. Clients only see available items;
// ?category= narrows the list.
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	q := mc.DB.Where("restaurant_id = ?", currentRestaurantID(c))
	if currentRole(c) == models.RoleClient {
		q = q.Where("is_available = ?", true)
	}
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}

	var items []models.MenuItem
	if err := q.Order("category, name").Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", items)
}

func (mc *MenuController) GetCategories(c *gin.Context) {
	var categories []string
	if err := mc.DB.Model(&models.MenuItem{}).
		Where("restaurant_id = ? AND category <> ''", currentRestaurantID(c)).
		Distinct().Order("category").
		Pluck("category", &categories).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu categories", categories)
}

func (mc *MenuController) CreateMenu(c *gin.Context) {
	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		Price       float64 `json:"price" binding:"gte=0"`
		Category    string  `json:"category"`
		IsAvailable *bool   `json:"is_available"`
	}
	if !bindJSON(c, &req) {
		return
	}

	item := models.MenuItem{
		RestaurantID: currentRestaurantID(c),
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Price:        req.Price,
		Category:     strings.TrimSpace(req.Category),
		IsAvailable:  req.IsAvailable == nil || *req.IsAvailable,
	}
	if err := mc.DB.Create(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Menu item created: %s (restaurant=%d)", item.Name, item.RestaurantID)
	utils.RespondJSON(c, http.StatusCreated, "Menu created", item)
}

func (mc *MenuController) UpdateMenu(c *gin.Context) {
	item, ok := mc.findItem(c)
	if !ok {
		return
	}

	var req struct {
		Name        *string  `json:"name" binding:"omitempty,min=1"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price" binding:"omitempty,gte=0"`
		Category    *string  `json:"category"`
		IsAvailable *bool    `json:"is_available"`
	}
	if !bindJSON(c, &req) {
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}
	if len(updates) > 0 {
		if err := mc.DB.Model(item).Updates(updates).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		mc.DB.First(item, item.ID)
	}
	utils.RespondJSON(c, http.StatusOK, "Menu updated", item)
}

func (mc *MenuController) SetAvailability(c *gin.Context) {
	item, ok := mc.findItem(c)
	if !ok {
		return
	}
	var req struct {
		IsAvailable *bool `json:"is_available" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := mc.DB.Model(item).Update("is_available", *req.IsAvailable).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	item.IsAvailable = *req.IsAvailable
	utils.RespondJSON(c, http.StatusOK, "Menu availability updated", item)
}

func (mc *MenuController) DeleteMenu(c *gin.Context) {
	item, ok := mc.findItem(c)
	if !ok {
		return
	}
	if err := mc.DB.Delete(item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.Printf("Menu item deleted: %s (restaurant=%d)", item.Name, item.RestaurantID)
	utils.RespondJSON(c, http.StatusOK, "Menu deleted", nil)
}
