package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

type DashboardController struct {
	Dashboard   *services.DashboardService
	Restaurants *services.RestaurantService
}

func NewDashboardController(dashboard *services.DashboardService, restaurants *services.RestaurantService) *DashboardController {
	return &DashboardController{Dashboard: dashboard, Restaurants: restaurants}
}

func (dc *DashboardController) stats(c *gin.Context) (*services.DashboardStats, bool) {
	from, to, err := dc.Dashboard.Range(c.Query("from"), c.Query("to"))
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	stats, err := dc.Dashboard.Stats(c.Request.Context(), currentRestaurantID(c), from, to)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return stats, true
}

// GetDashboardStats summarises orders between ?from and ?to (YYYY-MM-DD,
// inclusive), today by default.
func (dc *DashboardController) GetDashboardStats(c *gin.Context) {
	stats, ok := dc.stats(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}

func (dc *DashboardController) ExportPDF(c *gin.Context) {
	stats, ok := dc.stats(c)
	if !ok {
		return
	}
	r, err := dc.Restaurants.Get(c.Request.Context(), currentRestaurantID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	pdf, err := services.DashboardPDF(r.Name, stats)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	filename := fmt.Sprintf("report-%s-%s.pdf", r.ShortCode, stats.From.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
