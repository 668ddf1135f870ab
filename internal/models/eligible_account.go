package models

import "time"

// EligibleDateLayout is the calendar date format of EligibleAccount.EligibleDate.
const EligibleDateLayout = "2006-01-02"

// MaxAccountIDLength is the column limit of EligibleAccount.AccountID, in characters.
const MaxAccountIDLength = 64

// EligibleAccount marks an account as eligible for the daily gift on one date.
type EligibleAccount struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`                                                // Primary key.
	AccountID    string    `gorm:"size:64;not null;uniqueIndex:idx_eligible_account_date,priority:1"`       // Game account identifier.
	EligibleDate string    `gorm:"size:10;not null;uniqueIndex:idx_eligible_account_date,priority:2;index"` // YYYY-MM-DD.
	CreatedAt    time.Time `gorm:"not null;autoCreateTime"`                                                 // Insert timestamp.
}

// TableName returns the eligibility table name.
func (EligibleAccount) TableName() string {
	return "daily_gift_eligible_accounts"
}
