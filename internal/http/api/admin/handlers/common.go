package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/policy"
	"github.com/router-for-me/GiftAdmin/internal/service"
	log "github.com/sirupsen/logrus"
)

// Context keys shared with the route middleware.
const (
	subjectKey     = "subject"
	errorDetailKey = "errorDetail"
)

// Shared response messages.
const (
	msgMissingParams  = "缺少必要參數"
	msgForbidden      = "權限不足"
	msgInternal       = "內部服務器錯誤"
	msgInvalidID      = "無效的 ID"
	msgNotFound       = "資源不存在"
	msgMissingToken   = "未提供認證令牌"
	msgInvalidToken   = "無效的認證令牌"
	msgTooManyLogins  = "登入嘗試次數過多，請稍後再試"
	msgMFARequired    = "需要雙重驗證"
	msgDuplicateUser  = "用戶名已存在"
	msgDuplicateCode  = "禮包碼已存在"
	msgInvalidRole    = "無效的角色"
	msgWrongCodeType  = "只有特定帳號類型的禮包碼才能更新帳號列表"
	msgBadCredentials = "Invalid credentials"
)

// SetSubject stores the authenticated caller on the request context.
func SetSubject(c *gin.Context, subject policy.Subject) {
	c.Set(subjectKey, subject)
}

// subjectFrom returns the caller stored by SetSubject, or the zero subject.
func subjectFrom(c *gin.Context) policy.Subject {
	value, ok := c.Get(subjectKey)
	if !ok {
		return policy.Subject{}
	}
	subject, _ := value.(policy.Subject)
	return subject
}

// ErrorDetail makes 500 responses carry the underlying error text.
func ErrorDetail(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(errorDetailKey, enabled)
		c.Next()
	}
}

// MissingToken answers a request that carries no bearer token.
func MissingToken(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgMissingToken})
}

// InvalidToken answers a request whose bearer token failed verification.
func InvalidToken(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": msgInvalidToken})
}

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// errorResponse customizes how writeServiceError renders one endpoint.
type errorResponse struct {
	notFound string // 404 message
	internal string // 500 message
	invalid  string // 400 message for validation failures; defaults to msgMissingParams
	success  bool   // add "success": false to the body
}

// writeServiceError maps a service error onto a status code and JSON body.
func writeServiceError(c *gin.Context, err error, resp errorResponse) {
	status, message := http.StatusInternalServerError, resp.internal
	if message == "" {
		message = msgInternal
	}
	extra := gin.H{}

	switch {
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, msgForbidden
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, resp.notFound
		if message == "" {
			message = msgNotFound
		}
	case errors.Is(err, service.ErrDuplicateUsername):
		status, message = http.StatusBadRequest, msgDuplicateUser
	case errors.Is(err, service.ErrDuplicateCode):
		status, message = http.StatusBadRequest, msgDuplicateCode
	case errors.Is(err, service.ErrInvalidCodeType):
		status, message = http.StatusBadRequest, msgWrongCodeType
	case errors.Is(err, service.ErrInvalidRole):
		status, message = http.StatusBadRequest, msgInvalidRole
	case errors.Is(err, service.ErrValidation):
		status, message = http.StatusBadRequest, resp.invalid
		if message == "" {
			message = msgMissingParams
		}
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, msgBadCredentials
	case errors.Is(err, service.ErrInvalidToken):
		status, message = http.StatusForbidden, msgInvalidToken
	case errors.Is(err, service.ErrTooManyAttempts):
		status, message = http.StatusTooManyRequests, msgTooManyLogins
	case errors.Is(err, service.ErrMFARequired):
		status, message = http.StatusUnauthorized, msgMFARequired
		extra["mfa_required"] = true
	}

	body := gin.H{"message": message}
	for k, v := range extra {
		body[k] = v
	}
	if resp.success {
		body["success"] = false
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		if c.GetBool(errorDetailKey) {
			body["error"] = err.Error()
		}
	}
	c.JSON(status, body)
}
