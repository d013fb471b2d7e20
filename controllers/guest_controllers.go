package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

// GuestController serves the anonymous QR flow: short code lookup, ordering
// and secret-based tracking.
type GuestController struct {
	Restaurants *services.RestaurantService
	Orders      *services.OrderService
	Links       services.GuestLinks
	Hub         *kds.Hub
}

func NewGuestController(restaurants *services.RestaurantService, orders *services.OrderService, links services.GuestLinks, hub *kds.Hub) *GuestController {
	return &GuestController{Restaurants: restaurants, Orders: orders, Links: links, Hub: hub}
}

// GetRestaurant validates a short code and returns the public view and the
// orderable menu.
func (gc *GuestController) GetRestaurant(c *gin.Context) {
	r, err := gc.Restaurants.FindByShortCode(c.Request.Context(), c.Param("short_code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if r.Status != models.RestaurantActive {
		utils.RespondError(c, http.StatusNotFound, errors.New("restaurant not found"))
		return
	}
	menu, err := gc.Restaurants.AvailableMenu(c.Request.Context(), r.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant found", gin.H{
		"restaurant": r.PublicView(),
		"menu":       menu,
	})
}

func (gc *GuestController) PlaceOrder(c *gin.Context) {
	r, err := gc.Restaurants.FindByShortCode(c.Request.Context(), c.Param("short_code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var input services.CreateOrderInput
	if !bindJSON(c, &input) {
		return
	}
	if raw := c.Param("table"); raw != "" {
		table, err := strconv.Atoi(raw)
		if err != nil || table < 1 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid table number"))
			return
		}
		input.TableNumber = &table
	}

	order, err := gc.Orders.CreateOrder(c.Request.Context(), services.Actor{}, r.ID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order placed", gin.H{
		"order":        order,
		"tracking_url": gc.Links.Tracking(order.ID, order.TrackingSecret),
	})
}

func (gc *GuestController) trackedParams(c *gin.Context) (uint, string, bool) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return 0, "", false
	}
	return id, c.Param("secret"), true
}

func (gc *GuestController) TrackOrder(c *gin.Context) {
	id, secret, ok := gc.trackedParams(c)
	if !ok {
		return
	}
	order, err := gc.Orders.TrackOrder(c.Request.Context(), id, secret)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status", order)
}

func (gc *GuestController) CancelOrder(c *gin.Context) {
	id, secret, ok := gc.trackedParams(c)
	if !ok {
		return
	}
	order, changed, err := gc.Orders.CancelGuestOrder(c.Request.Context(), id, secret)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", gin.H{"order": order, "changed": changed})
}

// TrackSocket streams snapshots of a single guest order.
func (gc *GuestController) TrackSocket(c *gin.Context) {
	id, secret, ok := gc.trackedParams(c)
	if !ok {
		return
	}
	order, err := gc.Orders.TrackOrder(c.Request.Context(), id, secret)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	serveSocket(c, gc.Hub, kds.Scope{RestaurantID: order.RestaurantID, OrderID: order.ID}, func() ([]models.Order, error) {
		current, err := gc.Orders.TrackOrder(c.Request.Context(), id, secret)
		if err != nil {
			return nil, err
		}
		return []models.Order{*current}, nil
	})
}
