package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

type OrderController struct {
	Orders      *services.OrderService
	Restaurants *services.RestaurantService
	Dashboard   *services.DashboardService
	Printers    *services.PrinterRegistry
}

func NewOrderController(orders *services.OrderService, restaurants *services.RestaurantService, printers *services.PrinterRegistry) *OrderController {
	return &OrderController{
		Orders:      orders,
		Restaurants: restaurants,
		Dashboard:   services.NewDashboardService(orders.DB),
		Printers:    printers,
	}
}

// GetAllOrders is the paginated order history.
// Query: status=a,b  from=YYYY-MM-DD  to=YYYY-MM-DD  page  page_size
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	filter := services.OrderFilter{}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, s)
			}
		}
	}
	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, err := oc.Dashboard.Range(c.Query("from"), c.Query("to"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		filter.From, filter.To = &from, &to
	}
	filter.Page, _ = strconv.Atoi(c.Query("page"))
	filter.PageSize, _ = strconv.Atoi(c.Query("page_size"))
	filter.Normalize()

	orders, total, err := oc.Orders.ListOrders(c.Request.Context(), currentRestaurantID(c), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", utils.Paginated{
		Items:    orders,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	})
}

// GetOrderByID lets staff read any order of the tenant and clients only their own.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), currentRestaurantID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if currentRole(c) == models.RoleClient && (order.UserID == nil || *order.UserID != currentUserID(c)) {
		utils.RespondError(c, http.StatusNotFound, errors.New("order not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (oc *OrderController) MyOrders(c *gin.Context) {
	orders, err := oc.Orders.MyOrders(c.Request.Context(), currentRestaurantID(c), currentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "My orders", orders)
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	var input services.CreateOrderInput
	if !bindJSON(c, &input) {
		return
	}
	order, err := oc.Orders.CreateOrder(c.Request.Context(), currentActor(c), currentRestaurantID(c), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// UpdateStatus writes a new status. With expected_status the write only
// applies while the order still has that status, answering 409 otherwise.
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		Status         string `json:"status" binding:"required"`
		ExpectedStatus string `json:"expected_status"`
	}
	if !bindJSON(c, &req) {
		return
	}

	order, err := oc.Orders.UpdateStatus(c.Request.Context(), currentRestaurantID(c), id, req.Status, req.ExpectedStatus)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// ApproveOrder accepts an awaiting order. With ?print=true one ticket print
// is attempted; a print failure does not undo the approval.
func (oc *OrderController) ApproveOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, changed, err := oc.Orders.ApproveOrder(c.Request.Context(), currentRestaurantID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := gin.H{"order": order, "changed": changed}
	if c.Query("print") == "true" {
		if err := oc.printTicket(c, order); err != nil {
			utils.ErrorLogger.WithFields(utils.OrderFields(order.RestaurantID, order.ID, order.Status)).
				Errorf("Ticket print failed: %v", err)
			resp["printed"] = false
			resp["print_error"] = err.Error()
		} else {
			resp["printed"] = true
		}
	}

	message := "Order approved"
	if !changed {
		message = "Order already approved"
	}
	utils.RespondJSON(c, http.StatusOK, message, resp)
}

func (oc *OrderController) RejectOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, changed, err := oc.Orders.RejectOrder(c.Request.Context(), currentRestaurantID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order rejected", gin.H{"order": order, "changed": changed})
}

func (oc *OrderController) MarkPaid(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.MarkPaid(c.Request.Context(), currentRestaurantID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order marked as paid", order)
}

func (oc *OrderController) PrintOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), currentRestaurantID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := oc.printTicket(c, order); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Ticket printed", nil)
}

func (oc *OrderController) printTicket(c *gin.Context, order *models.Order) error {
	if oc.Printers == nil {
		return services.ErrPrinterNotPaired
	}
	name := ""
	if r, err := oc.Restaurants.Get(c.Request.Context(), order.RestaurantID); err == nil {
		name = r.Name
	}
	return oc.Printers.Get(order.RestaurantID).PrintOrderTicket(name, order)
}
