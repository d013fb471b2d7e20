package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

type RestaurantController struct {
	DB          *gorm.DB
	Restaurants *services.RestaurantService
	Links       services.GuestLinks
}

func NewRestaurantController(db *gorm.DB, links services.GuestLinks) *RestaurantController {
	return &RestaurantController{DB: db, Restaurants: services.NewRestaurantService(db), Links: links}
}

func (rc *RestaurantController) GetCurrent(c *gin.Context) {
	r, err := rc.Restaurants.Get(c.Request.Context(), currentRestaurantID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant retrieved", gin.H{
		"restaurant": r,
		"guest_url":  rc.Links.Restaurant(r.ShortCode),
	})
}

func (rc *RestaurantController) UpdateCurrent(c *gin.Context) {
	var input services.UpdateRestaurantInput
	if !bindJSON(c, &input) {
		return
	}
	r, err := rc.Restaurants.Update(c.Request.Context(), currentRestaurantID(c), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Restaurant %s updated (accepting_orders=%t)", r.ShortCode, r.AcceptingOrders)
	utils.RespondJSON(c, http.StatusOK, "Restaurant updated", r)
}

// Create opens a new restaurant and attaches it to the calling manager.
func (rc *RestaurantController) Create(c *gin.Context) {
	var input services.CreateRestaurantInput
	if !bindJSON(c, &input) {
		return
	}
	r, err := rc.Restaurants.Create(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var manager models.User
	if err := rc.DB.First(&manager, currentUserID(c)).Error; err == nil {
		manager.RestaurantIDs = append(manager.RestaurantIDs, r.ID)
		if err := rc.DB.Model(&manager).Update("restaurant_ids", manager.RestaurantIDs).Error; err != nil {
			utils.ErrorLogger.Printf("Failed to attach restaurant %d to user %d: %v", r.ID, manager.ID, err)
		}
	}

	utils.InfoLogger.Printf("Restaurant created: %s (%s)", r.Name, r.ShortCode)
	utils.RespondJSON(c, http.StatusCreated, "Restaurant created", r)
}

// QRCode returns a PNG pointing at the guest URL, or the table URL when
// ?table=n is given.
func (rc *RestaurantController) QRCode(c *gin.Context) {
	r, err := rc.Restaurants.Get(c.Request.Context(), currentRestaurantID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	table := 0
	if raw := c.Query("table"); raw != "" {
		table, err = strconv.Atoi(raw)
		if err != nil || table < 1 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("table must be a positive number"))
			return
		}
	}

	png, err := services.QRCode(rc.Links.For(r.ShortCode, table))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
