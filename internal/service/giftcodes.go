package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	dbutil "github.com/router-for-me/GiftAdmin/internal/db"
	"github.com/router-for-me/GiftAdmin/internal/models"
	"github.com/router-for-me/GiftAdmin/internal/policy"
	"gorm.io/gorm"
)

// Audit details written for each gift code mutation.
const (
	auditDetailCreate         = "創建新禮包碼"
	auditDetailDelete         = "刪除禮包碼"
	auditDetailExtendPrefix   = "延長有效期至 "
	auditDetailUpdateAccounts = "更新特定帳號列表"
)

var expiryLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// ParseExpiry accepts RFC3339, "2006-01-02 15:04:05" or a bare date.
// Values without a zone are read in loc.
func ParseExpiry(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, validationError("expiry date is required")
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range expiryLayouts {
		if t, errParse := time.ParseInLocation(layout, raw, loc); errParse == nil {
			return t, nil
		}
	}
	return time.Time{}, validationError("unrecognized expiry date " + raw)
}

// GiftCodeView is a gift code annotated with its live redemption count.
type GiftCodeView struct {
	models.GiftCode
	RedeemCount int64 `json:"redeem_count"`
}

// CreateGiftCodeInput holds the fields of a new gift code.
type CreateGiftCodeInput struct {
	Code              string
	Type              string
	Rewards           json.RawMessage
	SpecificAccounts  json.RawMessage
	ExpiryDate        string
	CheckCreationTime bool
}

// GiftCodeService manages gift codes and their ledgers.
type GiftCodeService struct {
	db    *gorm.DB
	audit *AuditRecorder
	loc   *time.Location
}

// NewGiftCodeService constructs a GiftCodeService. loc is used for expiry
// values that carry no zone; nil means local time.
func NewGiftCodeService(db *gorm.DB, audit *AuditRecorder, loc *time.Location) *GiftCodeService {
	if loc == nil {
		loc = time.Local
	}
	return &GiftCodeService{db: db, audit: audit, loc: loc}
}

// List returns a page of codes, newest first, each with its redemption count.
func (s *GiftCodeService) List(ctx context.Context, caller policy.Subject, req PageRequest) (Page[GiftCodeView], error) {
	if !policy.Allow(caller, policy.GiftCodes, 0) {
		return Page[GiftCodeView]{}, ErrForbidden
	}
	codes, errPage := fetchPage[models.GiftCode](ctx, func() *gorm.DB {
		return s.db.Model(&models.GiftCode{})
	}, "created_at DESC, id DESC", req)
	if errPage != nil {
		return Page[GiftCodeView]{}, WrapError("gift_codes", "list", "query_failed", errPage)
	}

	counts, errCount := s.redeemCounts(ctx, codes.Data)
	if errCount != nil {
		return Page[GiftCodeView]{}, WrapError("gift_codes", "list", "count_failed", errCount)
	}
	views := make([]GiftCodeView, 0, len(codes.Data))
	for _, code := range codes.Data {
		views = append(views, GiftCodeView{GiftCode: code, RedeemCount: counts[code.ID]})
	}
	return Page[GiftCodeView]{Data: views, Total: codes.Total, Page: codes.Page, PageSize: codes.PageSize}, nil
}

// redeemCounts counts redemptions of every code on the page in one grouped query.
func (s *GiftCodeService) redeemCounts(ctx context.Context, codes []models.GiftCode) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	ids := make([]uint64, 0, len(codes))
	for _, code := range codes {
		ids = append(ids, code.ID)
	}
	var rows []struct {
		CodeID uint64
		Total  int64
	}
	if errScan := s.db.WithContext(ctx).Model(&models.GiftCodeRedemption{}).
		Select("code_id, COUNT(*) AS total").
		Where("code_id IN ?", ids).
		Group("code_id").
		Scan(&rows).Error; errScan != nil {
		return nil, errScan
	}
	for _, row := range rows {
		out[row.CodeID] = row.Total
	}
	return out, nil
}

// Create inserts a gift code and records a create audit entry.
func (s *GiftCodeService) Create(ctx context.Context, caller policy.Subject, in CreateGiftCodeInput) (uint64, error) {
	if !policy.Allow(caller, policy.GiftCodes, 0) {
		return 0, ErrForbidden
	}
	code := strings.TrimSpace(in.Code)
	codeType := strings.TrimSpace(in.Type)
	if code == "" || codeType == "" || strings.TrimSpace(in.ExpiryDate) == "" {
		return 0, validationError("code, type and expiry date are required")
	}
	if exceeds(code, models.MaxGiftCodeLength) {
		return 0, validationError("code must be at most 64 characters")
	}
	if exceeds(codeType, models.MaxGiftCodeTypeLength) {
		return 0, validationError("type must be at most 20 characters")
	}
	expiry, errExpiry := ParseExpiry(in.ExpiryDate, s.loc)
	if errExpiry != nil {
		return 0, errExpiry
	}
	var accounts models.JSON
	if !isJSONNull(in.SpecificAccounts) {
		normalized, errAccounts := NormalizeAccounts(in.SpecificAccounts)
		if errAccounts != nil {
			return 0, errAccounts
		}
		accounts = normalized
	}
	var rewards models.JSON
	if !isJSONNull(in.Rewards) {
		if !json.Valid(in.Rewards) {
			return 0, validationError("rewards must be valid JSON")
		}
		rewards = models.JSON(in.Rewards)
	}

	row := models.GiftCode{
		Code:              code,
		Type:              codeType,
		Rewards:           rewards,
		SpecificAccounts:  accounts,
		ExpiryDate:        expiry,
		CheckCreationTime: in.CheckCreationTime,
	}
	if errCreate := s.db.WithContext(ctx).Omit("Redemptions").Create(&row).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return 0, ErrDuplicateCode
		}
		return 0, WrapError("gift_codes", "create", "insert_failed", errCreate)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:     models.GiftLogActionCreate,
		CodeID:     row.ID,
		Code:       row.Code,
		Details:    auditDetailCreate,
		OperatorID: caller.ID,
	})
	return row.ID, nil
}

// Delete removes a code and its redemptions. A missing code is reported
// before anything is written.
func (s *GiftCodeService) Delete(ctx context.Context, caller policy.Subject, id uint64) error {
	if !policy.Allow(caller, policy.GiftCodes, 0) {
		return ErrForbidden
	}
	code, errFind := s.find(ctx, id, "delete")
	if errFind != nil {
		return errFind
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDelete := tx.Where("code_id = ?", code.ID).Delete(&models.GiftCodeRedemption{}).Error; errDelete != nil {
			return errDelete
		}
		return tx.Delete(&models.GiftCode{}, code.ID).Error
	})
	if errTx != nil {
		return WrapError("gift_codes", "delete", "delete_failed", errTx)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:     models.GiftLogActionDelete,
		CodeID:     code.ID,
		Code:       code.Code,
		Details:    auditDetailDelete,
		OperatorID: caller.ID,
	})
	return nil
}

// Extend replaces the expiry of a code.
func (s *GiftCodeService) Extend(ctx context.Context, caller policy.Subject, id uint64, expiryDate string) error {
	if !policy.Allow(caller, policy.GiftCodes, 0) {
		return ErrForbidden
	}
	expiry, errExpiry := ParseExpiry(expiryDate, s.loc)
	if errExpiry != nil {
		return errExpiry
	}
	code, errFind := s.find(ctx, id, "extend")
	if errFind != nil {
		return errFind
	}
	if errUpdate := s.db.WithContext(ctx).Model(&models.GiftCode{}).
		Where("id = ?", code.ID).
		Update("expiry_date", expiry).Error; errUpdate != nil {
		return WrapError("gift_codes", "extend", "update_failed", errUpdate)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:     models.GiftLogActionExtend,
		CodeID:     code.ID,
		Code:       code.Code,
		Details:    auditDetailExtendPrefix + strings.TrimSpace(expiryDate),
		OperatorID: caller.ID,
	})
	return nil
}

// UpdateSpecificAccounts replaces the allow-list of a specific-type code.
func (s *GiftCodeService) UpdateSpecificAccounts(ctx context.Context, caller policy.Subject, id uint64, accounts json.RawMessage) error {
	if !policy.Allow(caller, policy.GiftCodes, 0) {
		return ErrForbidden
	}
	if isJSONNull(accounts) {
		return validationError("specific accounts are required")
	}
	normalized, errAccounts := NormalizeAccounts(accounts)
	if errAccounts != nil {
		return errAccounts
	}
	code, errFind := s.find(ctx, id, "update_accounts")
	if errFind != nil {
		return errFind
	}
	if code.Type != models.GiftCodeTypeSpecific {
		return ErrInvalidCodeType
	}
	if errUpdate := s.db.WithContext(ctx).Model(&models.GiftCode{}).
		Where("id = ?", code.ID).
		Update("specific_accounts", normalized).Error; errUpdate != nil {
		return WrapError("gift_codes", "update_accounts", "update_failed", errUpdate)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:     models.GiftLogActionUpdateAccounts,
		CodeID:     code.ID,
		Code:       code.Code,
		Details:    auditDetailUpdateAccounts,
		OperatorID: caller.ID,
	})
	return nil
}

// ListRedemptions returns redemptions of one code, newest first.
func (s *GiftCodeService) ListRedemptions(ctx context.Context, caller policy.Subject, id uint64, req PageRequest) (Page[models.GiftCodeRedemption], error) {
	if !policy.Allow(caller, policy.GiftCodes, 0) {
		return Page[models.GiftCodeRedemption]{}, ErrForbidden
	}
	page, errPage := fetchPage[models.GiftCodeRedemption](ctx, func() *gorm.DB {
		return s.db.Model(&models.GiftCodeRedemption{}).Where("code_id = ?", id)
	}, "redeemed_at DESC, id DESC", req)
	if errPage != nil {
		return Page[models.GiftCodeRedemption]{}, WrapError("gift_codes", "redemptions", "query_failed", errPage)
	}
	return page, nil
}

// ListLogs returns audit entries of one code, newest first. Entries of
// deleted codes remain readable.
func (s *GiftCodeService) ListLogs(ctx context.Context, caller policy.Subject, id uint64, req PageRequest) (Page[models.GiftLog], error) {
	if !policy.Allow(caller, policy.GiftCodes, 0) {
		return Page[models.GiftLog]{}, ErrForbidden
	}
	page, errPage := fetchPage[models.GiftLog](ctx, func() *gorm.DB {
		return s.db.Model(&models.GiftLog{}).Where("code_id = ?", id)
	}, "created_at DESC, id DESC", req)
	if errPage != nil {
		return Page[models.GiftLog]{}, WrapError("gift_codes", "logs", "query_failed", errPage)
	}
	return page, nil
}

func (s *GiftCodeService) find(ctx context.Context, id uint64, subject string) (models.GiftCode, error) {
	var code models.GiftCode
	errFind := s.db.WithContext(ctx).Select("id", "code", "type").First(&code, id).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.GiftCode{}, ErrNotFound
		}
		return models.GiftCode{}, WrapError("gift_codes", subject, "query_failed", errFind)
	}
	return code, nil
}

// NormalizeAccounts accepts a JSON array of account ids, or a JSON string
// holding such an array, and returns the compact array encoding.
// Elements must be strings or numbers.
func NormalizeAccounts(raw json.RawMessage) (models.JSON, error) {
	trimmed := bytes.TrimSpace(raw)
	var encoded string
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if errString := json.Unmarshal(trimmed, &encoded); errString != nil {
			return nil, validationError("specific accounts must be a JSON array")
		}
		trimmed = []byte(strings.TrimSpace(encoded))
	}
	var items []any
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if errDecode := decoder.Decode(&items); errDecode != nil || items == nil {
		return nil, validationError("specific accounts must be a JSON array")
	}
	for _, item := range items {
		switch item.(type) {
		case string, json.Number:
		default:
			return nil, validationError("specific accounts must contain strings or numbers")
		}
	}
	compact, errMarshal := json.Marshal(items)
	if errMarshal != nil {
		return nil, validationError("specific accounts must be a JSON array")
	}
	return models.JSON(compact), nil
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
