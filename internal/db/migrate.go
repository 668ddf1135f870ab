package db

import (
	"fmt"

	"github.com/router-for-me/GiftAdmin/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.Account{},
		&models.GiftCode{},
		&models.GiftCodeRedemption{},
		&models.GiftLog{},
		&models.EligibleAccount{},
		&models.Post{},
		&models.Setting{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
