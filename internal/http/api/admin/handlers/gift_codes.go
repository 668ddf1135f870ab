package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/service"
)

const msgGiftCodeNotFound = "禮包碼不存在"

// GiftCodeHandler manages gift code endpoints.
type GiftCodeHandler struct {
	codes *service.GiftCodeService
}

// NewGiftCodeHandler constructs a GiftCodeHandler.
func NewGiftCodeHandler(codes *service.GiftCodeService) *GiftCodeHandler {
	return &GiftCodeHandler{codes: codes}
}

// looseBool accepts true/false, 0/1 and their string forms.
type looseBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *looseBool) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch strings.ToLower(raw) {
	case "", "null", "0", "false":
		*b = false
		return nil
	}
	parsed, errParse := strconv.ParseBool(raw)
	if errParse != nil {
		n, errNum := strconv.ParseFloat(raw, 64)
		if errNum != nil {
			return errParse
		}
		parsed = n != 0
	}
	*b = looseBool(parsed)
	return nil
}

// createGiftCodeRequest defines the request body for gift code creation.
type createGiftCodeRequest struct {
	Code              string          `json:"code"`
	Type              string          `json:"type"`
	Rewards           json.RawMessage `json:"rewards"`
	SpecificAccounts  json.RawMessage `json:"specific_accounts"`
	ExpiryDate        string          `json:"expiry_date"`
	CheckCreationTime looseBool       `json:"check_creation_time"`
}

// extendRequest defines the request body for expiry extension.
type extendRequest struct {
	ExpiryDate string `json:"expiryDate"`
}

// updateAccountsRequest defines the request body for allow-list updates.
type updateAccountsRequest struct {
	SpecificAccounts json.RawMessage `json:"specific_accounts"`
}

// List returns a page of gift codes with redemption counts.
func (h *GiftCodeHandler) List(c *gin.Context) {
	req := service.ParsePageRequest(c.Query("page"), c.Query("pageSize"))
	page, errList := h.codes.List(c.Request.Context(), subjectFrom(c), req)
	if errList != nil {
		writeServiceError(c, errList, errorResponse{internal: "獲取禮包碼列表失敗"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create inserts a new gift code.
func (h *GiftCodeHandler) Create(c *gin.Context) {
	var body createGiftCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgMissingParams})
		return
	}
	id, errCreate := h.codes.Create(c.Request.Context(), subjectFrom(c), service.CreateGiftCodeInput{
		Code:              body.Code,
		Type:              body.Type,
		Rewards:           body.Rewards,
		SpecificAccounts:  body.SpecificAccounts,
		ExpiryDate:        body.ExpiryDate,
		CheckCreationTime: bool(body.CheckCreationTime),
	})
	if errCreate != nil {
		writeServiceError(c, errCreate, errorResponse{internal: "創建禮包碼失敗"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "創建禮包碼成功", "id": id})
}

// Delete removes a gift code and its redemptions.
func (h *GiftCodeHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidID})
		return
	}
	if errDelete := h.codes.Delete(c.Request.Context(), subjectFrom(c), id); errDelete != nil {
		writeServiceError(c, errDelete, errorResponse{notFound: msgGiftCodeNotFound, internal: "刪除禮包碼失敗"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "刪除禮包碼成功"})
}

// Extend replaces the expiry date of a gift code.
func (h *GiftCodeHandler) Extend(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidID})
		return
	}
	var body extendRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgMissingParams})
		return
	}
	if errExtend := h.codes.Extend(c.Request.Context(), subjectFrom(c), id, body.ExpiryDate); errExtend != nil {
		writeServiceError(c, errExtend, errorResponse{notFound: msgGiftCodeNotFound, internal: "延長有效期失敗"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "延長有效期成功"})
}

// UpdateAccounts replaces the allow-list of a specific-type gift code.
func (h *GiftCodeHandler) UpdateAccounts(c *gin.Context) {
	resp := errorResponse{notFound: msgGiftCodeNotFound, internal: "更新帳號列表失敗", success: true}
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msgMissingParams})
		return
	}
	var body updateAccountsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msgMissingParams})
		return
	}
	if errUpdate := h.codes.UpdateSpecificAccounts(c.Request.Context(), subjectFrom(c), id, body.SpecificAccounts); errUpdate != nil {
		writeServiceError(c, errUpdate, resp)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "更新帳號列表成功"})
}

// Redemptions returns a page of redemptions for one gift code.
func (h *GiftCodeHandler) Redemptions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidID})
		return
	}
	req := service.ParsePageRequest(c.Query("page"), c.Query("pageSize"))
	page, errList := h.codes.ListRedemptions(c.Request.Context(), subjectFrom(c), id, req)
	if errList != nil {
		writeServiceError(c, errList, errorResponse{internal: "獲取兌換記錄失敗"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// Logs returns a page of audit entries for one gift code.
func (h *GiftCodeHandler) Logs(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidID})
		return
	}
	req := service.ParsePageRequest(c.Query("page"), c.Query("pageSize"))
	page, errList := h.codes.ListLogs(c.Request.Context(), subjectFrom(c), id, req)
	if errList != nil {
		writeServiceError(c, errList, errorResponse{internal: "獲取操作日誌失敗"})
		return
	}
	c.JSON(http.StatusOK, page)
}
