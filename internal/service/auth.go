package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/GiftAdmin/internal/config"
	"github.com/router-for-me/GiftAdmin/internal/metrics"
	"github.com/router-for-me/GiftAdmin/internal/models"
	"github.com/router-for-me/GiftAdmin/internal/policy"
	"github.com/router-for-me/GiftAdmin/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LoginLimiter throttles repeated failed logins per username.
type LoginLimiter interface {
	Locked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) (bool, error)
	Reset(ctx context.Context, username string)
}

// AccountSummary is the public view of an account returned on login.
type AccountSummary struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResult carries the issued token and the account summary.
type LoginResult struct {
	Token string
	User  AccountSummary
}

// AuthService verifies credentials and issues bearer tokens.
type AuthService struct {
	db      *gorm.DB
	jwtCfg  config.JWTConfig
	limiter LoginLimiter
	now     func() time.Time
}

// NewAuthService constructs an AuthService. limiter may be nil.
func NewAuthService(db *gorm.DB, jwtCfg config.JWTConfig, limiter LoginLimiter) *AuthService {
	return &AuthService{db: db, jwtCfg: jwtCfg, limiter: limiter, now: time.Now}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// equalizeTiming runs a bcrypt comparison for unknown usernames so both
// failure paths cost the same.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = security.HashPassword("gift-admin-unknown-user")
	})
	_ = security.CheckPassword(dummyHash, password)
}

// Login authenticates username/password and, when the account has TOTP
// enabled, code. Unknown users and wrong secrets both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password, code string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, validationError("username and password are required")
	}

	var account models.Account
	errFind := s.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return LoginResult{}, WrapError("auth", "login", "query_failed", errFind)
	}
	// Failures count against the stored name; unknown names are keyed as typed.
	limiterKey := username
	if errFind == nil {
		limiterKey = account.Username
	}

	if s.limiter != nil {
		locked, errLocked := s.limiter.Locked(ctx, limiterKey)
		if errLocked != nil {
			log.WithError(errLocked).Warn("auth: login limiter unavailable")
		} else if locked {
			metrics.LoginRejections.WithLabelValues("locked").Inc()
			return LoginResult{}, ErrTooManyAttempts
		}
	}

	if errFind != nil {
		equalizeTiming(password)
		return LoginResult{}, s.failLogin(ctx, limiterKey, "unknown_user")
	}
	if !security.CheckPassword(account.Password, password) {
		return LoginResult{}, s.failLogin(ctx, limiterKey, "bad_password")
	}
	if strings.TrimSpace(account.TOTPSecret) != "" {
		if strings.TrimSpace(code) == "" {
			metrics.LoginRejections.WithLabelValues("mfa_required").Inc()
			return LoginResult{}, ErrMFARequired
		}
		if !security.ValidateTOTP(code, account.TOTPSecret) {
			return LoginResult{}, s.failLogin(ctx, limiterKey, "bad_totp")
		}
	}

	if s.limiter != nil {
		s.limiter.Reset(ctx, limiterKey)
	}

	if errUpdate := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", account.ID).
		UpdateColumn("last_login", s.now().UTC()).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("account_id", account.ID).Warn("auth: update last_login failed")
	}

	token, errToken := security.GenerateAccountToken(s.jwtCfg.Secret, account.ID, account.Username, account.Role, s.jwtCfg.Expiry)
	if errToken != nil {
		return LoginResult{}, WrapError("auth", "login", "sign_failed", errToken)
	}
	return LoginResult{
		Token: token,
		User:  AccountSummary{ID: account.ID, Username: account.Username, Role: account.Role},
	}, nil
}

func (s *AuthService) failLogin(ctx context.Context, username, reason string) error {
	metrics.LoginRejections.WithLabelValues(reason).Inc()
	if s.limiter == nil {
		return ErrInvalidCredentials
	}
	locked, errRecord := s.limiter.RecordFailure(ctx, username)
	if errRecord != nil {
		log.WithError(errRecord).Warn("auth: record login failure failed")
	}
	if locked {
		log.WithField("username", username).Warn("auth: username locked after repeated failures")
	}
	return ErrInvalidCredentials
}

// VerifyToken validates a bearer token. Expired and malformed tokens fail alike.
func (s *AuthService) VerifyToken(token string) (policy.Subject, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return policy.Subject{}, ErrInvalidToken
	}
	claims, err := security.ParseAccountToken(s.jwtCfg.Secret, token)
	if err != nil {
		return policy.Subject{}, ErrInvalidToken
	}
	return policy.Subject{ID: claims.ID, Username: claims.Username, Role: claims.Role}, nil
}
