// Package policy decides which operations a caller may perform based only on
// the role and id carried in its token.
package policy

import "github.com/router-for-me/GiftAdmin/internal/models"

// Operation names a guarded action.
type Operation string

// Guarded operations.
const (
	AdminList      Operation = "admin.list"
	AdminRead      Operation = "admin.read"
	AdminCreate    Operation = "admin.create"
	AdminUpdate    Operation = "admin.update"
	AdminDelete    Operation = "admin.delete"
	PasswordChange Operation = "admin.password"
	GiftCodes      Operation = "gift_codes"
	MFA            Operation = "mfa"
)

// Subject is the authenticated caller.
type Subject struct {
	ID       uint64
	Username string
	Role     string
}

// IsSuperAdmin reports whether the subject holds the super_admin role.
func (s Subject) IsSuperAdmin() bool {
	return s.Role == models.RoleSuperAdmin
}

// Allow reports whether subject may perform op. targetID is the account the
// operation acts on and only matters for PasswordChange.
func Allow(subject Subject, op Operation, targetID uint64) bool {
	switch op {
	case AdminList, AdminRead, AdminCreate, AdminUpdate, AdminDelete:
		return subject.IsSuperAdmin()
	case PasswordChange:
		return subject.IsSuperAdmin() || (subject.ID != 0 && subject.ID == targetID)
	case GiftCodes, MFA:
		return subject.ID != 0
	default:
		return false
	}
}

// RequiresOldPassword reports whether a permitted password change must verify
// the current password first.
func RequiresOldPassword(subject Subject) bool {
	return !subject.IsSuperAdmin()
}
