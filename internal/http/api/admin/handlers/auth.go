package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/service"
)

// AuthHandler handles login and session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

const msgLoginMissing = "Username and password are required"

// Login authenticates a user and issues a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgLoginMissing})
		return
	}

	result, errLogin := h.auth.Login(c.Request.Context(), body.Username, body.Password, body.Code)
	if errLogin != nil {
		writeServiceError(c, errLogin, errorResponse{
			invalid:  msgLoginMissing,
			internal: "Internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   result.Token,
		"user":    result.User,
	})
}

// Me returns the caller's token claims.
func (h *AuthHandler) Me(c *gin.Context) {
	subject := subjectFrom(c)
	c.JSON(http.StatusOK, service.AccountSummary{
		ID:       subject.ID,
		Username: subject.Username,
		Role:     subject.Role,
	})
}
