package models

import "time"

// Setting stores a runtime-tunable key/value entry.
type Setting struct {
	Key       string    `gorm:"size:191;primaryKey"` // Configuration key.
	Value     JSON      // JSON-encoded value.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName returns the settings table name.
func (Setting) TableName() string {
	return "settings"
}
