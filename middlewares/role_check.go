package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	need := strings.Join(roles, " or ")

	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}
		if r, ok := role.(string); !ok || !allowed[r] {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("%s access required", need))
			c.Abort()
			return
		}
		c.Next()
	}
}
