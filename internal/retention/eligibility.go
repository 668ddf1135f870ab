// Package retention prunes aged rows from append-only ledgers.
package retention

import (
	"context"
	"time"

	dbutil "github.com/router-for-me/GiftAdmin/internal/db"
	"github.com/router-for-me/GiftAdmin/internal/metrics"
	"github.com/router-for-me/GiftAdmin/internal/models"
	"github.com/router-for-me/GiftAdmin/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultInterval        = 6 * time.Hour
	defaultDeleteBatchSize = 5000
	maxDeleteBatchesPerRun = 2000
)

// EligibilityCleaner periodically deletes old daily eligibility rows.
type EligibilityCleaner struct {
	db          *gorm.DB
	settings    *settings.Store
	defaultDays int
	loc         *time.Location
	interval    time.Duration
	batchSize   int
	now         func() time.Time
}

// NewEligibilityCleaner builds a cleaner. defaultDays applies when the
// settings store carries no override; loc defines calendar dates.
func NewEligibilityCleaner(db *gorm.DB, store *settings.Store, defaultDays int, loc *time.Location) *EligibilityCleaner {
	if db == nil {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	return &EligibilityCleaner{
		db:          db,
		settings:    store,
		defaultDays: defaultDays,
		loc:         loc,
		interval:    defaultInterval,
		batchSize:   defaultDeleteBatchSize,
		now:         time.Now,
	}
}

// Start launches the cleanup loop in a background goroutine.
func (c *EligibilityCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	go c.run(ctx)
	log.Infof("eligibility retention cleaner started (interval=%s)", c.interval)
}

func (c *EligibilityCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.CleanupOnce(ctx)
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RetentionDays returns the active retention window in days.
func (c *EligibilityCleaner) RetentionDays() int {
	days := c.defaultDays
	if override, ok := c.settings.Int(settings.EligibilityRetentionDaysKey); ok && override >= 0 {
		days = override
	}
	return days
}

// CleanupOnce deletes rows dated before the retention cutoff and returns
// how many were removed.
func (c *EligibilityCleaner) CleanupOnce(ctx context.Context) int64 {
	if c == nil || c.db == nil {
		return 0
	}
	days := c.RetentionDays()
	if days <= 0 {
		return 0
	}
	cutoff := c.now().In(c.loc).AddDate(0, 0, -days).Format(models.EligibleDateLayout)

	var deleted int64
	for i := 0; i < maxDeleteBatchesPerRun; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := c.deleteBatch(ctx, cutoff)
		if err != nil {
			log.WithError(err).Warn("eligibility retention cleaner: delete batch failed")
			break
		}
		if n <= 0 {
			break
		}
		deleted += n
	}
	if deleted > 0 {
		metrics.EligibilityPruned.Add(float64(deleted))
		log.Infof("eligibility retention cleaner: deleted %d rows (cutoff=%s retention_days=%d)", deleted, cutoff, days)
	}
	return deleted
}

func (c *EligibilityCleaner) deleteBatch(ctx context.Context, cutoff string) (int64, error) {
	limit := c.batchSize
	if limit <= 0 {
		limit = defaultDeleteBatchSize
	}
	var res *gorm.DB
	if dbutil.DialectName(c.db) == dbutil.DialectMySQL {
		// MySQL rejects LIMIT inside an IN subquery but accepts it on DELETE.
		res = c.db.WithContext(ctx).Exec(
			"DELETE FROM daily_gift_eligible_accounts WHERE eligible_date < ? ORDER BY eligible_date ASC LIMIT ?",
			cutoff, limit)
	} else {
		res = c.db.WithContext(ctx).Exec(`
			DELETE FROM daily_gift_eligible_accounts
			WHERE id IN (
				SELECT id FROM daily_gift_eligible_accounts
				WHERE eligible_date < ?
				ORDER BY eligible_date ASC
				LIMIT ?
			)
		`, cutoff, limit)
	}
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
