package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

type PrinterController struct {
	Printers *services.PrinterRegistry
}

func NewPrinterController(printers *services.PrinterRegistry) *PrinterController {
	return &PrinterController{Printers: printers}
}

func (pc *PrinterController) Status(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Printer status", pc.Printers.Get(currentRestaurantID(c)).Status())
}

// Connect pairs the restaurant with a printer device and remembers it.
func (pc *PrinterController) Connect(c *gin.Context) {
	var req struct {
		DevicePath string `json:"device_path" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	rid := currentRestaurantID(c)
	if err := pc.Printers.Pair(rid, req.DevicePath); err != nil {
		utils.RespondError(c, http.StatusBadGateway, err)
		return
	}
	utils.InfoLogger.Printf("Printer paired for restaurant %d at %s", rid, req.DevicePath)
	utils.RespondJSON(c, http.StatusOK, "Printer connected", pc.Printers.Get(rid).Status())
}

func (pc *PrinterController) TestPage(c *gin.Context) {
	p := pc.Printers.Get(currentRestaurantID(c))
	if err := p.PrintTestPage(); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Test page printed", p.Status())
}
