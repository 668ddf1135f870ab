package service

import (
	"context"
	"strings"
	"time"

	"github.com/router-for-me/GiftAdmin/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EligibilityService marks accounts eligible for the daily gift.
type EligibilityService struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

// NewEligibilityService constructs an EligibilityService. "Today" is the
// calendar date in loc; nil means local time.
func NewEligibilityService(db *gorm.DB, loc *time.Location) *EligibilityService {
	if loc == nil {
		loc = time.Local
	}
	return &EligibilityService{db: db, loc: loc, now: time.Now}
}

// Location returns the zone that defines calendar dates.
func (s *EligibilityService) Location() *time.Location {
	return s.loc
}

// Today returns the current eligibility date.
func (s *EligibilityService) Today() string {
	return s.now().In(s.loc).Format(models.EligibleDateLayout)
}

// MarkEligible records accountID as eligible today. It reports whether a new
// row was written; a repeat call on the same date is a successful no-op.
func (s *EligibilityService) MarkEligible(ctx context.Context, accountID string) (bool, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return false, validationError("account id is required")
	}
	if exceeds(accountID, models.MaxAccountIDLength) {
		return false, validationError("account id must be at most 64 characters")
	}
	today := s.Today()

	var existing int64
	if errCount := s.db.WithContext(ctx).Model(&models.EligibleAccount{}).
		Where("account_id = ? AND eligible_date = ?", accountID, today).
		Count(&existing).Error; errCount != nil {
		return false, WrapError("eligibility", "mark", "query_failed", errCount)
	}
	if existing > 0 {
		return false, nil
	}

	// The unique index settles concurrent first calls.
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.EligibleAccount{AccountID: accountID, EligibleDate: today})
	if res.Error != nil {
		return false, WrapError("eligibility", "mark", "insert_failed", res.Error)
	}
	return res.RowsAffected > 0, nil
}
