package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopcms-backend/internal/shared/response"
	"shopcms-backend/pkg/jwt"
	"shopcms-backend/pkg/logger"
)

// AuthMiddleware - Middleware xác thực JWT token, request bị chặn nếu không có token
func AuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := actorFromHeader(c, jwtManager)
		if err != nil {
			logger.Debug("auth rejected: " + err.Error())
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		if actor == nil {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		SetActor(c, actor)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the actor when a valid token is present.
// Anonymous requests pass through; an invalid token is still rejected.
func OptionalAuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := actorFromHeader(c, jwtManager)
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		if actor != nil {
			SetActor(c, actor)
		}
		c.Next()
	}
}

type authError string

func (e authError) Error() string { return string(e) }

// actorFromHeader returns nil, nil when no Authorization header is sent
func actorFromHeader(c *gin.Context, jwtManager *jwt.Manager) (*Actor, error) {
	// 1. Lấy token từ Authorization header
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, nil
	}

	// 2. Extract token từ "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, authError("invalid authorization header format")
	}

	// 3. Verify và parse JWT
	claims, err := jwtManager.ValidateAccessToken(parts[1])
	if err != nil {
		return nil, authError("invalid token")
	}

	// 4. Extract userID từ claims
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, authError("invalid user ID in token")
	}

	return &Actor{ID: userID, Email: claims.Email, Role: claims.Role}, nil
}
