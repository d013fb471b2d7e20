package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

// Context keys set by the auth middlewares.
const (
	CtxUserID       = "user_id"
	CtxRole         = "role"
	CtxRestaurantID = "restaurant_id"
	CtxToken        = "token"
	CtxClaims       = "claims"
)

// AuthMiddleware requires a valid bearer token and puts the caller's
// identity, role and restaurant on the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid token format"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}
		if claims.RestaurantID == 0 {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("token carries no restaurant"))
			c.Abort()
			return
		}

		setIdentity(c, tokenString, claims)
		c.Next()
	}
}

func setIdentity(c *gin.Context, token string, claims *utils.CustomClaims) {
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxRestaurantID, claims.RestaurantID)
	c.Set(CtxToken, token)
	c.Set(CtxClaims, claims)
}
