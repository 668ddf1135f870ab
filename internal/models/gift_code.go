package models

import "time"

// Gift code types with special handling.
const (
	// GiftCodeTypeGeneral can be redeemed by any account.
	GiftCodeTypeGeneral = "general"
	// GiftCodeTypeSpecific is limited to SpecificAccounts.
	GiftCodeTypeSpecific = "specific"
)

// Column limits, in characters.
const (
	MaxGiftCodeLength     = 64
	MaxGiftCodeTypeLength = 20
)

// GiftCode represents a promotional code.
type GiftCode struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	Code string `gorm:"size:64;not null;uniqueIndex" json:"code"` // Unique redeemable code.
	Type string `gorm:"size:20;not null;index" json:"type"`       // general, specific, ...

	Rewards          JSON `json:"rewards"`           // Opaque reward payload.
	SpecificAccounts JSON `json:"specific_accounts"` // Allowed accounts for specific codes.

	ExpiryDate        time.Time `gorm:"not null;index" json:"expiry_date"`                 // Expiration time.
	CheckCreationTime bool      `gorm:"not null;default:false" json:"check_creation_time"` // Require accounts created before the code.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"` // Creation timestamp.

	Redemptions []GiftCodeRedemption `gorm:"foreignKey:CodeID;constraint:OnDelete:CASCADE" json:"-"` // Redemption rows.
}

// TableName returns the gift code table name.
func (GiftCode) TableName() string {
	return "gift_codes"
}

// GiftCodeRedemption records an account redeeming a gift code.
type GiftCodeRedemption struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeID     uint64    `gorm:"not null;index" json:"code_id"`
	AccountID  string    `gorm:"size:64;not null;index" json:"account_id"`
	RedeemedAt time.Time `gorm:"not null;index" json:"redeemed_at"`
}

// TableName returns the redemption table name.
func (GiftCodeRedemption) TableName() string {
	return "gift_code_redemptions"
}
