package service

import (
	"context"

	"github.com/router-for-me/GiftAdmin/internal/metrics"
	"github.com/router-for-me/GiftAdmin/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditEntry describes one gift code mutation.
type AuditEntry struct {
	Action     string
	CodeID     uint64
	Code       string
	Details    string
	OperatorID uint64
}

// AuditRecorder appends gift log entries.
type AuditRecorder struct {
	db *gorm.DB
}

// NewAuditRecorder constructs an AuditRecorder.
func NewAuditRecorder(db *gorm.DB) *AuditRecorder {
	return &AuditRecorder{db: db}
}

// Record stores entry. It never fails the caller: insert errors are logged
// and counted, and the write outlives cancellation of ctx.
func (r *AuditRecorder) Record(ctx context.Context, entry AuditEntry) {
	if r == nil || r.db == nil {
		return
	}
	row := models.GiftLog{
		ActionType: entry.Action,
		CodeID:     entry.CodeID,
		Code:       entry.Code,
		Details:    entry.Details,
	}
	if entry.OperatorID != 0 {
		operatorID := entry.OperatorID
		row.OperatorID = &operatorID
	}
	if errCreate := r.db.WithContext(context.WithoutCancel(ctx)).Create(&row).Error; errCreate != nil {
		metrics.AuditWriteFailures.WithLabelValues(entry.Action).Inc()
		log.WithError(errCreate).WithFields(log.Fields{
			"action":  entry.Action,
			"code_id": entry.CodeID,
			"code":    entry.Code,
		}).Warn("audit: record gift log failed")
	}
}
