package models

import "time"

// Account roles.
const (
	// RoleUser is a regular account with no admin surface.
	RoleUser = "user"
	// RoleAdmin may manage gift codes.
	RoleAdmin = "admin"
	// RoleSuperAdmin may additionally manage admin accounts.
	RoleSuperAdmin = "super_admin"
)

// Account statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusBanned   = "banned"
)

// Column limits, in characters.
const (
	MaxUsernameLength = 50
	MaxEmailLength    = 100
)

// AdminRoles lists the roles visible to admin management.
var AdminRoles = []string{RoleAdmin, RoleSuperAdmin}

// Account represents a web login account stored in the WebAccount table.
type Account struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string  `gorm:"size:50;not null;uniqueIndex"` // Unique login name.
	Password string  `gorm:"size:255;not null"`            // Bcrypt hash.
	Email    *string `gorm:"size:100"`                     // Optional contact email.

	Role   string `gorm:"size:20;not null;default:user;index"` // user, admin or super_admin.
	Status string `gorm:"size:20;not null;default:active"`     // active, inactive or banned.

	TOTPSecret           string     `gorm:"size:64"` // Confirmed TOTP secret.
	PendingTOTPSecret    string     `gorm:"size:64"` // Secret awaiting confirmation.
	PendingTOTPExpiresAt *time.Time // Pending secret expiry.

	CreatedBy *uint64  `gorm:"index"`                                             // Creating account, if any.
	Creator   *Account `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL"` // Creating account record.

	LastLogin *time.Time // Last successful login.
	CreatedAt time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName keeps the legacy table name.
func (Account) TableName() string {
	return "WebAccount"
}

// IsValidRole reports whether role is a known account role.
func IsValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
