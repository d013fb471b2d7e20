package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

type NotificationController struct {
	DB *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{DB: db}
}

// scope limits clients to their own notifications; staff see the whole restaurant.
func (nc *NotificationController) scope(c *gin.Context) *gorm.DB {
	q := nc.DB.Where("restaurant_id = ?", currentRestaurantID(c))
	if currentRole(c) == models.RoleClient {
		q = q.Where("user_id = ?", currentUserID(c))
	}
	return q
}

// GetAllNotifications lists the newest 100; ?unread=true filters.
func (nc *NotificationController) GetAllNotifications(c *gin.Context) {
	q := nc.scope(c)
	if c.Query("unread") == "true" {
		q = q.Where("is_read = ?", false)
	}
	var notifs []models.Notification
	if err := q.Order("created_at desc, id desc").Limit(100).Find(&notifs).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All notifications", notifs)
}

func (nc *NotificationController) MarkAsRead(c *gin.Context) {
	id, ok := paramID(c, "notification_id")
	if !ok {
		return
	}
	res := nc.scope(c).Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("notification not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification marked as read", nil)
}

func (nc *NotificationController) MarkAllAsRead(c *gin.Context) {
	res := nc.scope(c).Model(&models.Notification{}).Where("is_read = ?", false).Update("is_read", true)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notifications marked as read", gin.H{"updated": res.RowsAffected})
}
