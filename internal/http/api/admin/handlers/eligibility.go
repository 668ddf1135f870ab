package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/service"
)

// EligibilityHandler serves the daily eligibility endpoint.
type EligibilityHandler struct {
	eligibility *service.EligibilityService
}

// NewEligibilityHandler constructs an EligibilityHandler.
func NewEligibilityHandler(eligibility *service.EligibilityService) *EligibilityHandler {
	return &EligibilityHandler{eligibility: eligibility}
}

// markEligibleRequest defines the request body; accountId may be a string or a number.
type markEligibleRequest struct {
	AccountID json.RawMessage `json:"accountId"`
}

func (r markEligibleRequest) accountID() string {
	raw := strings.TrimSpace(string(r.AccountID))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if errUnmarshal := json.Unmarshal(r.AccountID, &s); errUnmarshal == nil {
		return s
	}
	var n json.Number
	if errUnmarshal := json.Unmarshal(r.AccountID, &n); errUnmarshal == nil {
		return n.String()
	}
	return ""
}

// Mark records the account as eligible for today.
func (h *EligibilityHandler) Mark(c *gin.Context) {
	var body markEligibleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "缺少帳號 ID"})
		return
	}

	inserted, errMark := h.eligibility.MarkEligible(c.Request.Context(), body.accountID())
	if errMark != nil {
		writeServiceError(c, errMark, errorResponse{invalid: "缺少帳號 ID", internal: "資料庫操作失敗", success: true})
		return
	}
	message := "成功添加帳號資格"
	if !inserted {
		message = "帳號已有資格"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}
