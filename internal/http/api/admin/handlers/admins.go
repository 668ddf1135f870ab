package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/service"
)

const msgAdminNotFound = "管理員不存在"

var adminErrors = errorResponse{notFound: msgAdminNotFound}

// AdminHandler manages admin account endpoints.
type AdminHandler struct {
	admins *service.AdminService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(admins *service.AdminService) *AdminHandler {
	return &AdminHandler{admins: admins}
}

// createAdminRequest defines the request body for admin creation.
type createAdminRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
	Role     string  `json:"role"`
}

// updateAdminRequest defines the request body for admin updates.
type updateAdminRequest struct {
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

// changePasswordRequest defines the request body for password changes.
type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// List returns all admin accounts.
func (h *AdminHandler) List(c *gin.Context) {
	rows, errList := h.admins.List(c.Request.Context(), subjectFrom(c))
	if errList != nil {
		writeServiceError(c, errList, adminErrors)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetByUsername returns one admin account.
func (h *AdminHandler) GetByUsername(c *gin.Context) {
	row, errGet := h.admins.GetByUsername(c.Request.Context(), subjectFrom(c), c.Param("username"))
	if errGet != nil {
		writeServiceError(c, errGet, adminErrors)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Create creates a new admin account.
func (h *AdminHandler) Create(c *gin.Context) {
	var body createAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgMissingParams})
		return
	}
	created, errCreate := h.admins.Create(c.Request.Context(), subjectFrom(c), service.CreateAdminInput{
		Username: body.Username,
		Password: body.Password,
		Email:    body.Email,
		Role:     body.Role,
	})
	if errCreate != nil {
		writeServiceError(c, errCreate, adminErrors)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update changes email and/or role of an admin account.
func (h *AdminHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidID})
		return
	}
	var body updateAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgMissingParams})
		return
	}
	if errUpdate := h.admins.Update(c.Request.Context(), subjectFrom(c), id, service.UpdateAdminInput{
		Email: body.Email,
		Role:  body.Role,
	}); errUpdate != nil {
		writeServiceError(c, errUpdate, adminErrors)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "更新成功"})
}

// Delete removes an admin account.
func (h *AdminHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidID})
		return
	}
	if errDelete := h.admins.Delete(c.Request.Context(), subjectFrom(c), id); errDelete != nil {
		writeServiceError(c, errDelete, adminErrors)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "刪除成功"})
}

// ChangePassword sets a new password for an account.
func (h *AdminHandler) ChangePassword(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidID})
		return
	}
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgMissingParams})
		return
	}
	errChange := h.admins.ChangePassword(c.Request.Context(), subjectFrom(c), id, body.OldPassword, body.NewPassword)
	switch {
	case errChange == nil:
		c.JSON(http.StatusOK, gin.H{"message": "密碼修改成功"})
	case errors.Is(errChange, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"message": "舊密碼錯誤"})
	default:
		writeServiceError(c, errChange, adminErrors)
	}
}
