package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSController struct {
	Hub    *kds.Hub
	Orders *services.OrderService
}

func NewWSController(hub *kds.Hub, orders *services.OrderService) *WSController {
	return &WSController{Hub: hub, Orders: orders}
}

// Serve subscribes an authenticated user to their restaurant's order feed.
// The open orders in scope are sent first so the subscriber starts from the
// current state.
func (wc *WSController) Serve(c *gin.Context) {
	scope := kds.Scope{
		RestaurantID: currentRestaurantID(c),
		Role:         currentRole(c),
		UserID:       currentUserID(c),
	}
	serveSocket(c, wc.Hub, scope, func() ([]models.Order, error) {
		var userID uint
		if !models.IsStaffRole(scope.Role) {
			userID = scope.UserID
		}
		return wc.Orders.OpenOrders(c.Request.Context(), scope.RestaurantID, userID)
	})
}

// snapshotFunc loads the orders a new subscriber receives on connect.
type snapshotFunc func() ([]models.Order, error)

// serveSocket upgrades the request, registers the subscriber, sends the
// initial snapshots and keeps the subscription until the peer goes away.
// Snapshots are loaded after registering so no later change is missed.
func serveSocket(c *gin.Context, hub *kds.Hub, scope kds.Scope, initial snapshotFunc) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := hub.Register(ws, scope)
	defer hub.Unregister(client)

	if initial != nil {
		orders, err := initial()
		if err != nil {
			utils.ErrorLogger.Printf("Error loading initial snapshot: %v", err)
			return
		}
		for i := range orders {
			if err := hub.Send(client, kds.Message{Event: kds.EventOrderUpdate, Data: orders[i]}); err != nil {
				utils.ErrorLogger.Printf("Error sending initial snapshot: %v", err)
				return
			}
		}
	}

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}
