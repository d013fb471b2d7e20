package controllers_test

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/controllers"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"gorm.io/gorm"
)

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func setupNotificationRouter(db *gorm.DB, user models.User) *gin.Engine {
	r := gin.New()
	nc := controllers.NewNotificationController(db)
	g := r.Group("/notifications", as(user))
	g.GET("", nc.GetAllNotifications)
	g.POST("/read-all", nc.MarkAllAsRead)
	g.POST("/:notification_id/read", nc.MarkAsRead)
	return r
}

func notify(t *testing.T, db *gorm.DB, order models.Order, status string) {
	t.Helper()
	order.Status = status
	title, message := services.StatusMessage(&order)
	require.NoError(t, (&services.DBNotifier{DB: db}).Notify(context.Background(), services.OrderEvent{
		Order: order, Title: title, Message: message,
	}))
}

func TestNotificationsForClientAndStaff(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	mine := placeOrder(t, setupOrderRouter(db, f.Client, nil), f)
	walkIn := placeOrder(t, setupOrderRouter(db, f.Cashier, nil), f)
	notify(t, db, mine, models.OrderPreparing)
	notify(t, db, mine, models.OrderReady)
	notify(t, db, walkIn, models.OrderReady)

	list := func(r *gin.Engine, path string) []models.Notification {
		w, env := do(t, r, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var notifs []models.Notification
		decode(t, env.Data, &notifs)
		return notifs
	}

	client := setupNotificationRouter(db, f.Client)
	notifs := list(client, "/notifications")
	require.Len(t, notifs, 2)
	assert.Contains(t, notifs[0].Message, fmt.Sprintf("Order #%d", mine.OrderNumber))

	staff := setupNotificationRouter(db, f.Cashier)
	assert.Len(t, list(staff, "/notifications"), 3)

	w, _ := do(t, client, http.MethodPost, "/notifications/"+itoa(notifs[0].ID)+"/read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, list(client, "/notifications?unread=true"), 1)

	staffOnly := list(staff, "/notifications?unread=true")
	var walkInNotif models.Notification
	for _, n := range staffOnly {
		if n.OrderID == walkIn.ID {
			walkInNotif = n
		}
	}
	require.NotZero(t, walkInNotif.ID)
	w, _ = do(t, client, http.MethodPost, "/notifications/"+itoa(walkInNotif.ID)+"/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := do(t, staff, http.MethodPost, "/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Updated int64 `json:"updated"`
	}
	decode(t, env.Data, &updated)
	assert.Equal(t, int64(2), updated.Updated)
	assert.Empty(t, list(staff, "/notifications?unread=true"))
}
