package models

import "time"

// Gift log action types.
const (
	GiftLogActionCreate         = "create"
	GiftLogActionDelete         = "delete"
	GiftLogActionExtend         = "extend"
	GiftLogActionUpdateAccounts = "update_accounts"
)

// GiftLog is an audit entry for a gift code mutation.
// Entries keep a snapshot of the code string and outlive the code itself.
type GiftLog struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ActionType string    `gorm:"size:32;not null" json:"action_type"`
	CodeID     uint64    `gorm:"not null;index" json:"code_id"`
	Code       string    `gorm:"size:64;not null" json:"code"`
	Details    string    `gorm:"type:text" json:"details"`
	OperatorID *uint64   `json:"operator_id,omitempty"` // Account that performed the action.
	CreatedAt  time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

// TableName returns the audit log table name.
func (GiftLog) TableName() string {
	return "gift_logs"
}
