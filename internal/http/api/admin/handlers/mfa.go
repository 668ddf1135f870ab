package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/service"
)

// MFAHandler handles TOTP enrollment for the calling account.
type MFAHandler struct {
	mfa *service.MFAService
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(mfa *service.MFAService) *MFAHandler {
	return &MFAHandler{mfa: mfa}
}

type totpCodeRequest struct {
	Code string `json:"code"`
}

var mfaErrors = errorResponse{notFound: "帳號不存在", invalid: "請輸入驗證碼"}

// Status reports whether TOTP is enabled.
func (h *MFAHandler) Status(c *gin.Context) {
	enabled, errStatus := h.mfa.Enabled(c.Request.Context(), subjectFrom(c))
	if errStatus != nil {
		writeServiceError(c, errStatus, mfaErrors)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": enabled})
}

// PrepareTOTP issues a pending secret and its provisioning URI.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	enrollment, errPrepare := h.mfa.Prepare(c.Request.Context(), subjectFrom(c))
	if errPrepare != nil {
		writeServiceError(c, errPrepare, mfaErrors)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"secret":      enrollment.Secret,
		"otpauth_url": enrollment.OTPAuthURL,
		"qr_image":    enrollment.QRImage,
	})
}

// ConfirmTOTP enables TOTP once a code from the pending secret checks out.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	var body totpCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": mfaErrors.invalid})
		return
	}
	if errConfirm := h.mfa.Confirm(c.Request.Context(), subjectFrom(c), body.Code); errConfirm != nil {
		h.writeError(c, errConfirm)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "雙重驗證已啟用"})
}

// DisableTOTP removes the TOTP secret after checking a current code.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	var body totpCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": mfaErrors.invalid})
		return
	}
	if errDisable := h.mfa.Disable(c.Request.Context(), subjectFrom(c), body.Code); errDisable != nil {
		h.writeError(c, errDisable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "雙重驗證已停用"})
}

func (h *MFAHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"message": "驗證碼錯誤"})
	case errors.Is(err, service.ErrMFANotPending):
		c.JSON(http.StatusBadRequest, gin.H{"message": "沒有待確認的雙重驗證設定"})
	default:
		writeServiceError(c, err, mfaErrors)
	}
}
