package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/auth"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// AuthMiddleware validates JWT bearer tokens on the operator API
func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Missing authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			appErr := errors.NewAuthError("missing authorization header")
			c.JSON(appErr.HTTPStatus(), appErr)
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Warn("Invalid authorization header format",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			appErr := errors.NewAuthError("invalid authorization header format")
			c.JSON(appErr.HTTPStatus(), appErr)
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			message := "invalid token"
			if err == auth.ErrExpiredToken {
				message = "token expired"
			}
			logger.Warn("Token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err),
			)
			appErr := errors.NewAuthError(message)
			c.JSON(appErr.HTTPStatus(), appErr)
			c.Abort()
			return
		}

		c.Set("username", claims.Username)

		c.Next()
	}
}
