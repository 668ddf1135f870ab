package service

import (
	"context"
	"errors"
	"strings"
	"time"

	dbutil "github.com/router-for-me/GiftAdmin/internal/db"
	"github.com/router-for-me/GiftAdmin/internal/models"
	"github.com/router-for-me/GiftAdmin/internal/policy"
	"github.com/router-for-me/GiftAdmin/internal/security"
	"gorm.io/gorm"
)

// AdminSummary is an admin account without its password hash.
type AdminSummary struct {
	ID        uint64     `json:"id"`
	Username  string     `json:"username"`
	Email     *string    `json:"email"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

// CreatedAdmin is returned by AdminService.Create.
type CreatedAdmin struct {
	ID       uint64  `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
	Role     string  `json:"role"`
}

// CreateAdminInput holds the fields for a new account.
type CreateAdminInput struct {
	Username string
	Password string
	Email    *string
	Role     string
}

// UpdateAdminInput holds optional field changes; nil leaves a field as is.
type UpdateAdminInput struct {
	Email *string
	Role  *string
}

// AdminService manages accounts whose role is admin or super_admin.
type AdminService struct {
	db *gorm.DB
}

// NewAdminService constructs an AdminService.
func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

var adminSummaryColumns = []string{"id", "username", "email", "role", "created_at", "last_login"}

func toAdminSummary(account models.Account) AdminSummary {
	return AdminSummary{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Role:      account.Role,
		CreatedAt: account.CreatedAt,
		LastLogin: account.LastLogin,
	}
}

// List returns every admin and super_admin account.
func (s *AdminService) List(ctx context.Context, caller policy.Subject) ([]AdminSummary, error) {
	if !policy.Allow(caller, policy.AdminList, 0) {
		return nil, ErrForbidden
	}
	var rows []models.Account
	if errFind := s.db.WithContext(ctx).
		Select(adminSummaryColumns).
		Where("role IN ?", models.AdminRoles).
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, WrapError("admins", "list", "query_failed", errFind)
	}
	out := make([]AdminSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, toAdminSummary(row))
	}
	return out, nil
}

// GetByUsername returns one admin account by exact username.
func (s *AdminService) GetByUsername(ctx context.Context, caller policy.Subject, username string) (AdminSummary, error) {
	if !policy.Allow(caller, policy.AdminRead, 0) {
		return AdminSummary{}, ErrForbidden
	}
	var account models.Account
	errFind := s.db.WithContext(ctx).
		Select(adminSummaryColumns).
		Where("username = ? AND role IN ?", strings.TrimSpace(username), models.AdminRoles).
		First(&account).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return AdminSummary{}, ErrNotFound
		}
		return AdminSummary{}, WrapError("admins", "get", "query_failed", errFind)
	}
	return toAdminSummary(account), nil
}

// Create inserts a new account recording caller as its creator.
func (s *AdminService) Create(ctx context.Context, caller policy.Subject, in CreateAdminInput) (CreatedAdmin, error) {
	if !policy.Allow(caller, policy.AdminCreate, 0) {
		return CreatedAdmin{}, ErrForbidden
	}
	username := strings.TrimSpace(in.Username)
	role := strings.TrimSpace(in.Role)
	if username == "" || in.Password == "" || role == "" {
		return CreatedAdmin{}, validationError("username, password and role are required")
	}
	if exceeds(username, models.MaxUsernameLength) {
		return CreatedAdmin{}, validationError("username must be at most 50 characters")
	}
	if in.Email != nil && exceeds(strings.TrimSpace(*in.Email), models.MaxEmailLength) {
		return CreatedAdmin{}, validationError("email must be at most 100 characters")
	}
	if !models.IsValidRole(role) {
		return CreatedAdmin{}, ErrInvalidRole
	}

	var existing int64
	if errCount := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("username = ?", username).
		Count(&existing).Error; errCount != nil {
		return CreatedAdmin{}, WrapError("admins", "create", "query_failed", errCount)
	}
	if existing > 0 {
		return CreatedAdmin{}, ErrDuplicateUsername
	}

	hash, errHash := security.HashPassword(in.Password)
	if errHash != nil {
		return CreatedAdmin{}, WrapError("admins", "create", "hash_failed", errHash)
	}
	account := models.Account{
		Username: username,
		Password: hash,
		Email:    normalizeEmail(in.Email),
		Role:     role,
		Status:   models.StatusActive,
	}
	if caller.ID != 0 {
		creatorID := caller.ID
		account.CreatedBy = &creatorID
	}
	if errCreate := s.db.WithContext(ctx).Omit("Creator").Create(&account).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return CreatedAdmin{}, ErrDuplicateUsername
		}
		return CreatedAdmin{}, WrapError("admins", "create", "insert_failed", errCreate)
	}
	return CreatedAdmin{ID: account.ID, Username: account.Username, Email: account.Email, Role: account.Role}, nil
}

// Update changes email and/or role of an admin account.
func (s *AdminService) Update(ctx context.Context, caller policy.Subject, id uint64, in UpdateAdminInput) error {
	if !policy.Allow(caller, policy.AdminUpdate, id) {
		return ErrForbidden
	}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if in.Email != nil {
		if exceeds(strings.TrimSpace(*in.Email), models.MaxEmailLength) {
			return validationError("email must be at most 100 characters")
		}
		updates["email"] = normalizeEmail(in.Email)
	}
	if in.Role != nil {
		role := strings.TrimSpace(*in.Role)
		if !models.IsValidRole(role) {
			return ErrInvalidRole
		}
		updates["role"] = role
	}
	if len(updates) == 1 {
		return validationError("nothing to update")
	}

	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND role IN ?", id, models.AdminRoles).
		Updates(updates)
	if res.Error != nil {
		return WrapError("admins", "update", "update_failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes an admin account.
func (s *AdminService) Delete(ctx context.Context, caller policy.Subject, id uint64) error {
	if !policy.Allow(caller, policy.AdminDelete, id) {
		return ErrForbidden
	}
	res := s.db.WithContext(ctx).
		Where("id = ? AND role IN ?", id, models.AdminRoles).
		Delete(&models.Account{})
	if res.Error != nil {
		return WrapError("admins", "delete", "delete_failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ChangePassword sets a new password for account id. Callers other than a
// super_admin must present the current password.
func (s *AdminService) ChangePassword(ctx context.Context, caller policy.Subject, id uint64, oldPassword, newPassword string) error {
	if !policy.Allow(caller, policy.PasswordChange, id) {
		return ErrForbidden
	}
	if newPassword == "" {
		return validationError("new password is required")
	}

	var account models.Account
	if errFind := s.db.WithContext(ctx).Select("id", "password").First(&account, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return WrapError("admins", "password", "query_failed", errFind)
	}
	if policy.RequiresOldPassword(caller) && !security.CheckPassword(account.Password, oldPassword) {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, account.ID, newPassword)
}

func (s *AdminService) setPassword(ctx context.Context, id uint64, password string) error {
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return WrapError("admins", "password", "hash_failed", errHash)
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{"password": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return WrapError("admins", "password", "update_failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureSuperAdmin creates a super_admin with the given credentials unless the
// username already exists. It reports whether an account was created.
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, username, password, email string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, validationError("bootstrap username and password are required")
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return false, WrapError("admins", "bootstrap", "hash_failed", errHash)
	}
	account := models.Account{
		Username: username,
		Password: hash,
		Email:    normalizeEmail(&email),
		Role:     models.RoleSuperAdmin,
		Status:   models.StatusActive,
	}
	var created bool
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if errCount := tx.Model(&models.Account{}).Where("username = ?", username).Count(&existing).Error; errCount != nil {
			return errCount
		}
		if existing > 0 {
			return nil
		}
		if errCreate := tx.Omit("Creator").Create(&account).Error; errCreate != nil {
			return errCreate
		}
		created = true
		return nil
	})
	if errTx != nil {
		if dbutil.IsUniqueViolation(errTx) {
			return false, nil
		}
		return false, WrapError("admins", "bootstrap", "insert_failed", errTx)
	}
	return created, nil
}

// ResetPassword sets the password of username without any policy check.
// It backs the operator command line only.
func (s *AdminService) ResetPassword(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return validationError("username and password are required")
	}
	var account models.Account
	if errFind := s.db.WithContext(ctx).Select("id").Where("username = ?", username).First(&account).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return WrapError("admins", "reset_password", "query_failed", errFind)
	}
	return s.setPassword(ctx, account.ID, password)
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
