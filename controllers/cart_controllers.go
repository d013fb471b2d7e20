package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/cart"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// CartController keeps a server-side cart per user and restaurant for web
// clients that have no local storage of their own.
type CartController struct {
	DB     *gorm.DB
	Prefs  *services.PreferenceStore
	Orders *services.OrderService
}

func NewCartController(db *gorm.DB, orders *services.OrderService) *CartController {
	return &CartController{DB: db, Prefs: services.NewPreferenceStore(db), Orders: orders}
}

func (cc *CartController) store(c *gin.Context) cart.Store {
	owner := fmt.Sprintf("%s@%d", services.UserOwner(currentUserID(c)), currentRestaurantID(c))
	return cc.Prefs.Scoped(owner)
}

func cartView(ct *cart.Cart) gin.H {
	lines := ct.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return gin.H{
		"lines":      lines,
		"total":      ct.Total(),
		"item_count": ct.ItemCount(),
	}
}

func (cc *CartController) load(c *gin.Context) (*cart.Cart, bool) {
	ct, err := cart.Load(cc.store(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return ct, true
}

func (cc *CartController) save(c *gin.Context, ct *cart.Cart, message string) {
	if err := cart.Save(cc.store(c), ct); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, message, cartView(ct))
}

func (cc *CartController) GetCart(c *gin.Context) {
	ct, ok := cc.load(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart", cartView(ct))
}

// ReplaceCart overwrites the whole cart with the posted lines.
func (cc *CartController) ReplaceCart(c *gin.Context) {
	var body cart.Cart
	if !bindJSON(c, &body) {
		return
	}
	ct := &cart.Cart{}
	for _, l := range body.Lines {
		if l.Quantity > 0 {
			ct.Add(l.Item, l.Quantity, l.Notes)
		}
	}
	cc.save(c, ct, "Cart saved")
}

// AddItem adds a menu item of the current restaurant, merging with a line
// that has the same item and notes.
func (cc *CartController) AddItem(c *gin.Context) {
	var req struct {
		MenuItemID uint   `json:"menu_item_id" binding:"required"`
		Quantity   int    `json:"quantity" binding:"required,min=1"`
		Notes      string `json:"notes"`
	}
	if !bindJSON(c, &req) {
		return
	}

	var item models.MenuItem
	if err := cc.DB.Where("restaurant_id = ?", currentRestaurantID(c)).First(&item, req.MenuItemID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("menu item not found"))
		return
	}

	ct, ok := cc.load(c)
	if !ok {
		return
	}
	ct.Add(cart.Item{MenuItemID: item.ID, Name: item.Name, Price: item.Price}, req.Quantity, strings.TrimSpace(req.Notes))
	cc.save(c, ct, "Item added to cart")
}

// UpdateItem sets a line's quantity; zero or less removes the line.
func (cc *CartController) UpdateItem(c *gin.Context) {
	var req struct {
		MenuItemID uint   `json:"menu_item_id" binding:"required"`
		Notes      string `json:"notes"`
		Quantity   int    `json:"quantity"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ct, ok := cc.load(c)
	if !ok {
		return
	}
	ct.UpdateQuantity(req.MenuItemID, strings.TrimSpace(req.Notes), req.Quantity)
	cc.save(c, ct, "Cart updated")
}

func (cc *CartController) ClearCart(c *gin.Context) {
	cc.save(c, &cart.Cart{}, "Cart cleared")
}

// Checkout turns the cart into an order and empties it.
func (cc *CartController) Checkout(c *gin.Context) {
	var req struct {
		CustomerName string `json:"customer_name"`
		TableNumber  *int   `json:"table_number"`
	}
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	ct, ok := cc.load(c)
	if !ok {
		return
	}
	if ct.IsEmpty() {
		utils.RespondError(c, http.StatusBadRequest, errors.New("cart is empty"))
		return
	}

	input := services.CreateOrderInput{CustomerName: req.CustomerName, TableNumber: req.TableNumber}
	for _, l := range ct.ToOrderItems() {
		input.Items = append(input.Items, services.ItemInput{MenuItemID: l.MenuItemID, Quantity: l.Quantity, Notes: l.Notes})
	}

	order, err := cc.Orders.CreateOrder(c.Request.Context(), currentActor(c), currentRestaurantID(c), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := cart.Save(cc.store(c), &cart.Cart{}); err != nil {
		utils.ErrorLogger.Printf("Order %d placed but cart not cleared: %v", order.ID, err)
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}
