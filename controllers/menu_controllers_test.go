package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/controllers"
	"github.com/yeremiapane/restaurant-ordering/models"
	"gorm.io/gorm"
)

func setupMenuRouter(db *gorm.DB, user models.User) *gin.Engine {
	r := gin.New()
	mc := controllers.NewMenuController(db)
	g := r.Group("/menu", as(user))
	g.GET("", mc.GetAllMenus)
	g.GET("/categories", mc.GetCategories)
	g.POST("", mc.CreateMenu)
	g.PATCH("/:item_id", mc.UpdateMenu)
	g.PATCH("/:item_id/availability", mc.SetAvailability)
	g.DELETE("/:item_id", mc.DeleteMenu)
	return r
}

func listMenu(t *testing.T, r *gin.Engine, path string) []models.MenuItem {
	t.Helper()
	w, env := do(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.MenuItem
	decode(t, env.Data, &items)
	return items
}

func TestMenuVisibilityByRole(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)

	assert.Len(t, listMenu(t, setupMenuRouter(db, f.Client), "/menu"), 2)
	assert.Len(t, listMenu(t, setupMenuRouter(db, f.Manager), "/menu"), 3)
	assert.Len(t, listMenu(t, setupMenuRouter(db, f.Manager), "/menu?category=Food"), 2)

	w, env := do(t, setupMenuRouter(db, f.Client), http.MethodGet, "/menu/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var categories []string
	decode(t, env.Data, &categories)
	assert.Equal(t, []string{"Drinks", "Food"}, categories)
}

func TestMenuCRUD(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	r := setupMenuRouter(db, f.Manager)

	w, env := do(t, r, http.MethodPost, "/menu", gin.H{"name": "Mie Ayam", "price": 18000, "category": "Food"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item models.MenuItem
	decode(t, env.Data, &item)
	assert.True(t, item.IsAvailable)
	assert.Equal(t, f.Restaurant.ID, item.RestaurantID)

	w, env = do(t, r, http.MethodPatch, fmt.Sprintf("/menu/%d", item.ID), gin.H{"price": 20000})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, env.Data, &item)
	assert.Equal(t, 20000.0, item.Price)
	assert.Equal(t, "Mie Ayam", item.Name)

	w, env = do(t, r, http.MethodPatch, fmt.Sprintf("/menu/%d/availability", item.ID), gin.H{"is_available": false})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, env.Data, &item)
	assert.False(t, item.IsAvailable)

	w, _ = do(t, r, http.MethodPatch, fmt.Sprintf("/menu/%d/availability", item.ID), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodDelete, fmt.Sprintf("/menu/%d", item.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodDelete, fmt.Sprintf("/menu/%d", item.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPost, "/menu", gin.H{"price": 1000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMenuIsTenantScoped(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	elsewhere := f.Manager
	elsewhere.ActiveRestaurantID = f.Other.ID
	r := setupMenuRouter(db, elsewhere)

	assert.Empty(t, listMenu(t, r, "/menu"))
	w, _ := do(t, r, http.MethodPatch, fmt.Sprintf("/menu/%d", f.Rice.ID), gin.H{"price": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
