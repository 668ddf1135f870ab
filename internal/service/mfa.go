package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/router-for-me/GiftAdmin/internal/models"
	"github.com/router-for-me/GiftAdmin/internal/policy"
	"github.com/router-for-me/GiftAdmin/internal/security"
	"gorm.io/gorm"
)

const (
	totpIssuer        = "GiftAdmin"
	totpPendingWindow = 10 * time.Minute
)

// MFAService manages TOTP enrollment for the calling account.
type MFAService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMFAService constructs an MFAService.
func NewMFAService(db *gorm.DB) *MFAService {
	return &MFAService{db: db, now: time.Now}
}

func (s *MFAService) load(ctx context.Context, caller policy.Subject) (models.Account, error) {
	if !policy.Allow(caller, policy.MFA, caller.ID) {
		return models.Account{}, ErrForbidden
	}
	var account models.Account
	if errFind := s.db.WithContext(ctx).First(&account, caller.ID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, WrapError("mfa", "account", "query_failed", errFind)
	}
	return account, nil
}

// Enabled reports whether the caller has a confirmed TOTP secret.
func (s *MFAService) Enabled(ctx context.Context, caller policy.Subject) (bool, error) {
	account, err := s.load(ctx, caller)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(account.TOTPSecret) != "", nil
}

// Prepare generates a pending secret that must be confirmed within ten minutes.
func (s *MFAService) Prepare(ctx context.Context, caller policy.Subject) (security.TOTPEnrollment, error) {
	account, err := s.load(ctx, caller)
	if err != nil {
		return security.TOTPEnrollment{}, err
	}
	enrollment, errGenerate := security.GenerateTOTP(totpIssuer, account.Username)
	if errGenerate != nil {
		return security.TOTPEnrollment{}, WrapError("mfa", "prepare", "generate_failed", errGenerate)
	}
	expires := s.now().UTC().Add(totpPendingWindow)
	if errUpdate := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"pending_totp_secret":     enrollment.Secret,
			"pending_totp_expires_at": expires,
		}).Error; errUpdate != nil {
		return security.TOTPEnrollment{}, WrapError("mfa", "prepare", "update_failed", errUpdate)
	}
	return enrollment, nil
}

// Confirm promotes the pending secret after checking code against it.
func (s *MFAService) Confirm(ctx context.Context, caller policy.Subject, code string) error {
	if strings.TrimSpace(code) == "" {
		return validationError("code is required")
	}
	account, err := s.load(ctx, caller)
	if err != nil {
		return err
	}
	pending := strings.TrimSpace(account.PendingTOTPSecret)
	if pending == "" || account.PendingTOTPExpiresAt == nil || s.now().After(*account.PendingTOTPExpiresAt) {
		return ErrMFANotPending
	}
	if !security.ValidateTOTP(code, pending) {
		return ErrInvalidCredentials
	}
	if errUpdate := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"totp_secret":             pending,
			"pending_totp_secret":     "",
			"pending_totp_expires_at": nil,
		}).Error; errUpdate != nil {
		return WrapError("mfa", "confirm", "update_failed", errUpdate)
	}
	return nil
}

// Disable removes the caller's TOTP secret after checking a current code.
func (s *MFAService) Disable(ctx context.Context, caller policy.Subject, code string) error {
	account, err := s.load(ctx, caller)
	if err != nil {
		return err
	}
	if strings.TrimSpace(account.TOTPSecret) == "" {
		return nil
	}
	if !security.ValidateTOTP(code, account.TOTPSecret) {
		return ErrInvalidCredentials
	}
	if errUpdate := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", account.ID).
		Update("totp_secret", "").Error; errUpdate != nil {
		return WrapError("mfa", "disable", "update_failed", errUpdate)
	}
	return nil
}
