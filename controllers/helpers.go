package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/middlewares"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

var ErrNoPermission = &CustomError{"You do not have permission"}

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

// respondServiceError maps service sentinels onto HTTP codes.
func respondServiceError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrNotAcceptingOrders):
		code = http.StatusConflict
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, services.ErrPrinterNotPaired):
		code = http.StatusPreconditionFailed
	}
	if code == http.StatusInternalServerError {
		utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	utils.RespondError(c, code, err)
}

// bindJSON binds the body, answering 400 with per-field errors on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if fields := utils.FieldErrors(err); fields != nil {
			utils.RespondFieldErrors(c, http.StatusBadRequest, "validation failed", fields)
			return false
		}
		utils.RespondError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

func currentUserID(c *gin.Context) uint       { return c.GetUint(middlewares.CtxUserID) }
func currentRole(c *gin.Context) string       { return c.GetString(middlewares.CtxRole) }
func currentRestaurantID(c *gin.Context) uint { return c.GetUint(middlewares.CtxRestaurantID) }

func currentActor(c *gin.Context) services.Actor {
	return services.Actor{
		UserID:       currentUserID(c),
		Role:         currentRole(c),
		RestaurantID: currentRestaurantID(c),
	}
}
