package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/router-for-me/GiftAdmin/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Refresh reloads every row of the settings table into the store.
// It must run once at startup; until then every lookup misses.
func (s *Store) Refresh(ctx context.Context, db *gorm.DB) error {
	if s == nil {
		return errors.New("settings: nil store")
	}
	if db == nil {
		return errors.New("settings: nil db")
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	newest := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value.RawMessage()
		if row.UpdatedAt.After(newest) {
			newest = row.UpdatedAt
		}
	}
	s.Replace(newest, values)
	return nil
}

// Put upserts one setting and refreshes the store.
func (s *Store) Put(ctx context.Context, db *gorm.DB, key string, value json.RawMessage) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("settings: empty key")
	}
	if !json.Valid(value) {
		return errors.New("settings: value is not valid JSON")
	}
	row := models.Setting{Key: key, Value: []byte(value), UpdatedAt: time.Now().UTC()}
	if errSave := db.WithContext(ctx).Save(&row).Error; errSave != nil {
		return errSave
	}
	return s.Refresh(ctx, db)
}
