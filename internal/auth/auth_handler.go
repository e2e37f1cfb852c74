package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	jwtManager *JWTManager
	logger     *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwtManager *JWTManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// LoginRequest represents the login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresIn int       `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid login request", zap.Error(err))
		appErr := errors.NewValidationError("invalid request", "username or password")
		c.JSON(appErr.HTTPStatus(), appErr)
		return
	}

	if !h.validateCredentials(req.Username, req.Password) {
		h.logger.Warn("Invalid credentials",
			zap.String("username", req.Username),
		)
		appErr := errors.NewAuthError("invalid credentials")
		c.JSON(appErr.HTTPStatus(), appErr)
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		h.logger.Error("Failed to generate token", zap.Error(err))
		appErr := errors.NewInternalError("failed to generate token", err)
		c.JSON(appErr.HTTPStatus(), appErr)
		return
	}

	ttl := h.jwtManager.TTL()
	response := LoginResponse{
		Token:     token,
		Type:      "Bearer",
		ExpiresIn: int(ttl.Seconds()),
		ExpiresAt: time.Now().Add(ttl),
	}

	h.logger.Info("User logged in",
		zap.String("username", req.Username),
	)

	c.JSON(http.StatusOK, response)
}

// validateCredentials validates operator credentials.
// Prototype-grade: a real deployment backs this with a user store.
func (h *AuthHandler) validateCredentials(username, password string) bool {
	validUsers := map[string]string{
		"admin":    "admin123",
		"operator": "operator123",
	}

	expectedPassword, exists := validUsers[username]
	if !exists {
		return false
	}

	return password == expectedPassword
}
