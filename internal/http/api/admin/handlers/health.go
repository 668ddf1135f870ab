package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	dbutil "github.com/router-for-me/GiftAdmin/internal/db"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz checks database connectivity and returns status.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if errPing := dbutil.Ping(c.Request.Context(), h.db); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// TestConnection runs a round trip query against the database.
func (h *HealthHandler) TestConnection(c *gin.Context) {
	errPing := dbutil.Ping(c.Request.Context(), h.db)
	if errPing == nil {
		errPing = h.db.WithContext(c.Request.Context()).Exec("SELECT 1").Error
	}
	if errPing != nil {
		log.WithError(errPing).Error("database connection test failed")
		body := gin.H{"success": false, "message": "資料庫連接失敗"}
		if c.GetBool(errorDetailKey) {
			body["error"] = errPing.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "資料庫連接成功"})
}
