package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/middlewares"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errInvalidCredentials = errors.New("invalid username or password")

type AuthController struct {
	DB          *gorm.DB
	Restaurants *services.RestaurantService
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{DB: db, Restaurants: services.NewRestaurantService(db)}
}

func (ac *AuthController) issue(c *gin.Context, user *models.User, message string) {
	token, err := utils.GenerateToken(user.ID, user.Role, user.ActiveRestaurantID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, message, gin.H{
		"token":         token,
		"user":          user,
		"restaurant_id": user.ActiveRestaurantID,
	})
}

// Login exchanges username and password for a JWT scoped to the user's
// active restaurant.
func (ac *AuthController) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}

	var user models.User
	if err := ac.DB.Where("username = ?", strings.TrimSpace(input.Username)).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errInvalidCredentials)
		return
	}
	if user.Status != models.UserActive {
		utils.RespondError(c, http.StatusForbidden, errors.New("account is "+user.Status))
		return
	}
	if user.ActiveRestaurantID == 0 || !user.BelongsTo(user.ActiveRestaurantID) {
		if len(user.RestaurantIDs) == 0 {
			utils.RespondError(c, http.StatusForbidden, errors.New("account is not attached to a restaurant"))
			return
		}
		user.ActiveRestaurantID = user.RestaurantIDs[0]
		ac.DB.Model(&user).Update("active_restaurant_id", user.ActiveRestaurantID)
	}

	utils.InfoLogger.Printf("Login successful for user: %s, role: %s", user.Username, user.Role)
	ac.issue(c, &user, "Login successful")
}

// Register creates a client account for the restaurant behind short_code.
func (ac *AuthController) Register(c *gin.Context) {
	var input struct {
		ShortCode string `json:"short_code" binding:"required"`
		Username  string `json:"username" binding:"required,min=3,max=100"`
		Name      string `json:"name" binding:"required"`
		Email     string `json:"email" binding:"omitempty,email"`
		Phone     string `json:"phone" binding:"omitempty,phone"`
		Password  string `json:"password" binding:"required,password"`
	}
	if !bindJSON(c, &input) {
		return
	}

	restaurant, err := ac.Restaurants.FindByShortCode(c.Request.Context(), input.ShortCode)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if restaurant.Status != models.RestaurantActive {
		utils.RespondError(c, http.StatusConflict, errors.New("restaurant is not active"))
		return
	}

	var count int64
	ac.DB.Model(&models.User{}).Where("username = ?", input.Username).Count(&count)
	if count > 0 {
		utils.RespondFieldErrors(c, http.StatusConflict, "username already taken", map[string]string{"username": "unique"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	user := models.User{
		Username:           input.Username,
		Name:               input.Name,
		Email:              input.Email,
		Phone:              input.Phone,
		Password:           string(hashed),
		Role:               models.RoleClient,
		Status:             models.UserActive,
		RestaurantIDs:      []uint{restaurant.ID},
		ActiveRestaurantID: restaurant.ID,
	}
	if err := ac.DB.Create(&user).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New client registered: %s (restaurant=%s)", user.Username, restaurant.ShortCode)
	token, err := utils.GenerateToken(user.ID, user.Role, user.ActiveRestaurantID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"token":         token,
		"user":          user,
		"restaurant_id": restaurant.ID,
	})
}

// Logout revokes the presented token until it expires.
func (ac *AuthController) Logout(c *gin.Context) {
	token := c.GetString(middlewares.CtxToken)
	expiry := time.Now().Add(24 * time.Hour)
	if v, ok := c.Get(middlewares.CtxClaims); ok {
		if claims, ok := v.(*utils.CustomClaims); ok && claims.ExpiresAt != nil {
			expiry = claims.ExpiresAt.Time
		}
	}
	utils.BlacklistToken(token, expiry)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

// SwitchRestaurant re-issues the token for another of the user's restaurants.
func (ac *AuthController) SwitchRestaurant(c *gin.Context) {
	var input struct {
		RestaurantID uint `json:"restaurant_id" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}

	var user models.User
	if err := ac.DB.First(&user, currentUserID(c)).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user no longer exists"))
		return
	}
	if !user.BelongsTo(input.RestaurantID) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}
	if err := ac.DB.Model(&user).Update("active_restaurant_id", input.RestaurantID).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	user.ActiveRestaurantID = input.RestaurantID
	ac.issue(c, &user, "Restaurant switched")
}

func (ac *AuthController) Profile(c *gin.Context) {
	var user models.User
	if err := ac.DB.First(&user, currentUserID(c)).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", gin.H{
		"user":          user,
		"restaurant_id": currentRestaurantID(c),
	})
}
