package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserController struct {
	DB *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{DB: db}
}

// restaurantUsers scopes a query to users attached to restaurantID.
func restaurantUsers(restaurantID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(datatypes.JSONArrayQuery("restaurant_ids").Contains(restaurantID))
	}
}

func (uc *UserController) findMember(c *gin.Context) (*models.User, bool) {
	id, ok := paramID(c, "user_id")
	if !ok {
		return nil, false
	}
	var user models.User
	if err := uc.DB.First(&user, id).Error; err != nil || !user.BelongsTo(currentRestaurantID(c)) {
		utils.RespondError(c, http.StatusNotFound, errors.New("user not found"))
		return nil, false
	}
	return &user, true
}

func (uc *UserController) GetAllUsers(c *gin.Context) {
	var users []models.User
	if err := uc.DB.Scopes(restaurantUsers(currentRestaurantID(c))).Order("id").Find(&users).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All users", users)
}

func (uc *UserController) CreateUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=100"`
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"omitempty,email"`
		Phone    string `json:"phone" binding:"omitempty,phone"`
		Password string `json:"password" binding:"required,password"`
		Role     string `json:"role" binding:"required,oneof=manager cashier cook client"`
	}
	if !bindJSON(c, &req) {
		return
	}

	var count int64
	uc.DB.Model(&models.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		utils.RespondFieldErrors(c, http.StatusConflict, "username already taken", map[string]string{"username": "unique"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	rid := currentRestaurantID(c)
	user := models.User{
		Username:           req.Username,
		Name:               req.Name,
		Email:              req.Email,
		Phone:              req.Phone,
		Password:           string(hashed),
		Role:               req.Role,
		Status:             models.UserActive,
		RestaurantIDs:      []uint{rid},
		ActiveRestaurantID: rid,
	}
	if err := uc.DB.Create(&user).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("User created: %s (role=%s, restaurant=%d)", user.Username, user.Role, rid)
	utils.RespondJSON(c, http.StatusCreated, "User created", user)
}

func (uc *UserController) UpdateUser(c *gin.Context) {
	user, ok := uc.findMember(c)
	if !ok {
		return
	}

	var req struct {
		Name     *string `json:"name" binding:"omitempty,min=1"`
		Email    *string `json:"email" binding:"omitempty,email"`
		Phone    *string `json:"phone" binding:"omitempty,phone"`
		Password *string `json:"password" binding:"omitempty,password"`
		Role     *string `json:"role" binding:"omitempty,oneof=manager cashier cook client"`
		Status   *string `json:"status" binding:"omitempty,oneof=active inactive suspended"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if user.ID == currentUserID(c) && ((req.Role != nil && *req.Role != models.RoleManager) ||
		(req.Status != nil && *req.Status != models.UserActive)) {
		utils.RespondError(c, http.StatusConflict, errors.New("you cannot demote or deactivate yourself"))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		updates["password"] = string(hashed)
	}

	if len(updates) > 0 {
		if err := uc.DB.Model(user).Updates(updates).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		if err := uc.DB.First(user, user.ID).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
	}
	utils.RespondJSON(c, http.StatusOK, "User updated", user)
}

// DeleteUser detaches the user from the current restaurant and removes the
// account once it belongs to no restaurant.
func (uc *UserController) DeleteUser(c *gin.Context) {
	user, ok := uc.findMember(c)
	if !ok {
		return
	}
	if user.ID == currentUserID(c) {
		utils.RespondError(c, http.StatusConflict, errors.New("you cannot delete yourself"))
		return
	}

	user.DetachRestaurant(currentRestaurantID(c))
	var err error
	if len(user.RestaurantIDs) == 0 {
		err = uc.DB.Delete(user).Error
	} else {
		err = uc.DB.Model(user).Updates(map[string]interface{}{
			"restaurant_ids":       user.RestaurantIDs,
			"active_restaurant_id": user.ActiveRestaurantID,
		}).Error
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("User %s removed from restaurant %d", user.Username, currentRestaurantID(c))
	utils.RespondJSON(c, http.StatusOK, "User deleted", nil)
}
