package middleware

import (
	"github.com/gin-gonic/gin"

	"shopcms-backend/internal/shared/response"
)

// AdminMiddleware checks if the actor set by AuthMiddleware has the admin role
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentActor(c).IsAdmin() {
			response.Forbidden(c, "Access denied: admin role required")
			c.Abort()
			return
		}

		c.Next()
	}
}
