package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeremiapane/restaurant-ordering/controllers"
	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/middlewares"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs from the running process.
type Deps struct {
	DB          *gorm.DB
	Hub         *kds.Hub
	Printers    *services.PrinterRegistry
	Links       services.GuestLinks
	CORSOrigins []string
	// RateLimit is requests per second per IP across the whole API.
	RateLimit int
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	middlewares.InitMetrics()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.PrometheusMiddleware())
	if d.RateLimit > 0 {
		r.Use(middlewares.NewRateLimiter(d.RateLimit, time.Second).RateLimit())
	}

	orders := services.NewOrderService(d.DB)
	restaurants := services.NewRestaurantService(d.DB)

	authCtrl := controllers.NewAuthController(d.DB)
	restaurantCtrl := controllers.NewRestaurantController(d.DB, d.Links)
	userCtrl := controllers.NewUserController(d.DB)
	menuCtrl := controllers.NewMenuController(d.DB)
	orderCtrl := controllers.NewOrderController(orders, restaurants, d.Printers)
	cartCtrl := controllers.NewCartController(d.DB, orders)
	guestCtrl := controllers.NewGuestController(restaurants, orders, d.Links, d.Hub)
	printerCtrl := controllers.NewPrinterController(d.Printers)
	dashboardCtrl := controllers.NewDashboardController(services.NewDashboardService(d.DB), restaurants)
	notificationCtrl := controllers.NewNotificationController(d.DB)
	wsCtrl := controllers.NewWSController(d.Hub, orders)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/auth")
	public.Use(middlewares.NewStrictRateLimiter(time.Second, 5))
	{
		public.POST("/login", authCtrl.Login)
		public.POST("/register", authCtrl.Register)
	}

	// Guests order through a short code and follow the order with its secret.
	guest := r.Group("/guest")
	{
		guest.GET("/:short_code", guestCtrl.GetRestaurant)
		guest.GET("/:short_code/table/:table", guestCtrl.GetRestaurant)
		guest.POST("/:short_code/orders", guestCtrl.PlaceOrder)
		guest.POST("/:short_code/table/:table/orders", guestCtrl.PlaceOrder)
	}
	r.GET("/track/:order_id/:secret", guestCtrl.TrackOrder)
	r.POST("/track/:order_id/:secret/cancel", guestCtrl.CancelOrder)
	r.GET("/track/:order_id/:secret/ws", guestCtrl.TrackSocket)

	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("", wsCtrl.Serve)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware())

	manager := middlewares.RequireRoles(models.RoleManager)
	till := middlewares.RequireRoles(models.RoleManager, models.RoleCashier)
	staff := middlewares.RequireRoles(models.RoleManager, models.RoleCashier, models.RoleCook)

	auth.POST("/auth/logout", authCtrl.Logout)
	auth.POST("/auth/switch-restaurant", authCtrl.SwitchRestaurant)
	auth.GET("/profile", authCtrl.Profile)

	// RESTAURANT
	auth.GET("/restaurant", staff, restaurantCtrl.GetCurrent)
	auth.PATCH("/restaurant", manager, restaurantCtrl.UpdateCurrent)
	auth.GET("/restaurant/qr", manager, restaurantCtrl.QRCode)
	auth.POST("/restaurants", manager, restaurantCtrl.Create)

	// USERS
	users := auth.Group("/users", manager)
	{
		users.GET("", userCtrl.GetAllUsers)
		users.POST("", userCtrl.CreateUser)
		users.PATCH("/:user_id", userCtrl.UpdateUser)
		users.DELETE("/:user_id", userCtrl.DeleteUser)
	}

	// MENU
	auth.GET("/menu", menuCtrl.GetAllMenus)
	auth.GET("/menu/categories", menuCtrl.GetCategories)
	auth.POST("/menu", manager, menuCtrl.CreateMenu)
	auth.PATCH("/menu/:item_id", manager, menuCtrl.UpdateMenu)
	auth.PATCH("/menu/:item_id/availability", manager, menuCtrl.SetAvailability)
	auth.DELETE("/menu/:item_id", manager, menuCtrl.DeleteMenu)

	// ORDERS
	auth.GET("/me/orders", orderCtrl.MyOrders)
	auth.POST("/orders", orderCtrl.CreateOrder)
	auth.GET("/orders", staff, orderCtrl.GetAllOrders)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.PATCH("/orders/:order_id/status", staff, orderCtrl.UpdateStatus)
	auth.POST("/orders/:order_id/approve", till, orderCtrl.ApproveOrder)
	auth.POST("/orders/:order_id/reject", till, orderCtrl.RejectOrder)
	auth.POST("/orders/:order_id/pay", till, orderCtrl.MarkPaid)
	auth.POST("/orders/:order_id/print", till, orderCtrl.PrintOrder)

	// CART
	cart := auth.Group("/cart")
	{
		cart.GET("", cartCtrl.GetCart)
		cart.PUT("", cartCtrl.ReplaceCart)
		cart.DELETE("", cartCtrl.ClearCart)
		cart.POST("/items", cartCtrl.AddItem)
		cart.PATCH("/items", cartCtrl.UpdateItem)
		cart.POST("/checkout", cartCtrl.Checkout)
	}

	// PRINTER
	printer := auth.Group("/printer", till)
	{
		printer.GET("", printerCtrl.Status)
		printer.POST("/connect", printerCtrl.Connect)
		printer.POST("/test", printerCtrl.TestPage)
	}

	// DASHBOARD
	auth.GET("/dashboard", manager, dashboardCtrl.GetDashboardStats)
	auth.GET("/dashboard/export.pdf", manager, dashboardCtrl.ExportPDF)

	// NOTIFICATIONS
	auth.GET("/notifications", notificationCtrl.GetAllNotifications)
	auth.POST("/notifications/read-all", notificationCtrl.MarkAllAsRead)
	auth.POST("/notifications/:notification_id/read", notificationCtrl.MarkAsRead)

	return r
}
