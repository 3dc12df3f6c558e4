package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aulacast/backend/config"
	"github.com/aulacast/backend/internal/auth"
)

type AuthHandler struct {
	admin      config.AdminConfig
	jwtService *auth.JWTService
}

func NewAuthHandler(admin config.AdminConfig, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{admin: admin, jwtService: jwtService}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates the operator account and issues a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if req.Email != h.admin.Email || h.admin.PasswordHash == "" {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := auth.CheckPassword(h.admin.PasswordHash, req.Password); err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// The operator account is configured, not stored, so derive a stable
	// identifier from the email.
	userID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(req.Email))
	token, err := h.jwtService.GenerateToken(userID, req.Email)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"id":    userID,
			"email": req.Email,
		},
	})
}
