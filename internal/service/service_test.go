package service

import (
	"context"
	"path/filepath"
	"testing"

	dbutil "github.com/router-for-me/GiftAdmin/internal/db"
	"github.com/router-for-me/GiftAdmin/internal/models"
	"github.com/router-for-me/GiftAdmin/internal/policy"
	"github.com/router-for-me/GiftAdmin/internal/security"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := dbutil.Open(filepath.Join(t.TempDir(), "service.db"), dbutil.Options{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	t.Cleanup(func() { _ = dbutil.Close(conn) })
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedAccount(t *testing.T, conn *gorm.DB, username, password, role string) models.Account {
	t.Helper()
	hash, errHash := security.HashPassword(password)
	require.NoError(t, errHash)
	account := models.Account{Username: username, Password: hash, Role: role, Status: models.StatusActive}
	require.NoError(t, conn.Omit("Creator").Create(&account).Error)
	return account
}

func subjectOf(account models.Account) policy.Subject {
	return policy.Subject{ID: account.ID, Username: account.Username, Role: account.Role}
}

func countRows(t *testing.T, conn *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	tx := conn.WithContext(context.Background()).Model(model)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	require.NoError(t, tx.Count(&n).Error)
	return n
}
