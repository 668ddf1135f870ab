package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/router-for-me/GiftAdmin/internal/models"
	"github.com/router-for-me/GiftAdmin/internal/security"
	"github.com/stretchr/testify/require"
)

func TestAdminListFiltersRolesAndRequiresSuperAdmin(t *testing.T) {
	conn := openServiceTestDB(t)
	super := seedAccount(t, conn, "root", "secret1", models.RoleSuperAdmin)
	admin := seedAccount(t, conn, "ops", "secret1", models.RoleAdmin)
	seedAccount(t, conn, "player", "secret1", models.RoleUser)
	svc := NewAdminService(conn)

	list, errList := svc.List(context.Background(), subjectOf(super))
	require.NoError(t, errList)
	require.Len(t, list, 2)
	require.Equal(t, "root", list[0].Username)
	require.Equal(t, "ops", list[1].Username)

	_, errForbidden := svc.List(context.Background(), subjectOf(admin))
	require.ErrorIs(t, errForbidden, ErrForbidden)
}

func TestAdminGetByUsername(t *testing.T) {
	conn := openServiceTestDB(t)
	super := seedAccount(t, conn, "root", "secret1", models.RoleSuperAdmin)
	seedAccount(t, conn, "player", "secret1", models.RoleUser)
	svc := NewAdminService(conn)

	found, errGet := svc.GetByUsername(context.Background(), subjectOf(super), "root")
	require.NoError(t, errGet)
	require.Equal(t, super.ID, found.ID)

	_, errUser := svc.GetByUsername(context.Background(), subjectOf(super), "player")
	require.ErrorIs(t, errUser, ErrNotFound)

	_, errMissing := svc.GetByUsername(context.Background(), subjectOf(super), "ghost")
	require.ErrorIs(t, errMissing, ErrNotFound)
}

func TestAdminCreateRecordsCreatorAndHashesPassword(t *testing.T) {
	conn := openServiceTestDB(t)
	super := seedAccount(t, conn, "root", "secret1", models.RoleSuperAdmin)
	svc := NewAdminService(conn)
	email := " ops@example.com "

	created, errCreate := svc.Create(context.Background(), subjectOf(super), CreateAdminInput{
		Username: "ops", Password: "hunter22", Email: &email, Role: models.RoleAdmin,
	})
	require.NoError(t, errCreate)
	require.Equal(t, "ops", created.Username)
	require.Equal(t, "ops@example.com", *created.Email)

	var stored models.Account
	require.NoError(t, conn.First(&stored, created.ID).Error)
	require.NotNil(t, stored.CreatedBy)
	require.Equal(t, super.ID, *stored.CreatedBy)
	require.NotEqual(t, "hunter22", stored.Password)
	require.True(t, security.CheckPassword(stored.Password, "hunter22"))
}

func TestAdminCreateRejectsDuplicateUsername(t *testing.T) {
	conn := openServiceTestDB(t)
	super := seedAccount(t, conn, "admin1", "correct", models.RoleSuperAdmin)
	svc := NewAdminService(conn)

	_, errCreate := svc.Create(context.Background(), subjectOf(super), CreateAdminInput{
		Username: "admin1", Password: "other1", Role: models.RoleAdmin,
	})
	require.ErrorIs(t, errCreate, ErrDuplicateUsername)
	require.EqualValues(t, 1, countRows(t, conn, &models.Account{}, "username = ?", "admin1"))
}

func TestAdminCreateConcurrentDuplicatesInsertOnce(t *testing.T) {
	conn := openServiceTestDB(t)
	super := seedAccount(t, conn, "root", "secret1", models.RoleSuperAdmin)
	svc := NewAdminService(conn)

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), subjectOf(super), CreateAdminInput{
				Username: "twin", Password: "secret1", Role: models.RoleAdmin,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrDuplicateUsername)
	}
	require.Equal(t, 1, succeeded)
	require.EqualValues(t, 1, countRows(t, conn, &models.Account{}, "username = ?", "twin"))
}

func TestAdminCreateValidatesInput(t *testing.T) {
	conn := openServiceTestDB(t)
	super := seedAccount(t, conn, "root", "secret1", models.RoleSuperAdmin)
	svc := NewAdminService(conn)

	_, errMissing := svc.Create(context.Background(), subjectOf(super), CreateAdminInput{Username: "ops", Role: models.RoleAdmin})
	require.ErrorIs(t, errMissing, ErrValidation)

	_, errRole := svc.Create(context.Background(), subjectOf(super), CreateAdminInput{Username: "ops", Password: "x", Role: "owner"})
	require.ErrorIs(t, errRole, ErrInvalidRole)
	require.ErrorIs(t, errRole, ErrValidation)
}

func TestAdminCreateRejectsOverlongFields(t *testing.T) {
	conn := openServiceTestDB(t)
	super := seedAccount(t, conn, "root", "secret1", models.RoleSuperAdmin)
	svc := NewAdminService(conn)
	ctx := context.Background()

	_, errName := svc.Create(ctx, subjectOf(super), CreateAdminInput{
		Username: strings.Repeat("u", models.MaxUsernameLength+1), Password: "secret1", Role: models.RoleAdmin,
	})
	require.ErrorIs(t, errName, ErrValidation)

	longEmail := strings.Repeat("e", models.MaxEmailLength) + "@x.io"
	_, errEmail := svc.Create(ctx, subjectOf(super), CreateAdminInput{
		Username: "ops", Password: "secret1", Email: &longEmail, Role: models.RoleAdmin,
	})
	require.ErrorIs(t, errEmail, ErrValidation)
	require.EqualValues(t, 0, countRows(t, conn, &models.Account{}, "username = ?", "ops"))

	// Limits count characters, not bytes.
	created, errWide := svc.Create(ctx, subjectOf(super), CreateAdminInput{
		Username: strings.Repeat("管", models.MaxUsernameLength), Password: "secret1", Role: models.RoleAdmin,
	})
	require.NoError(t, errWide)
	require.NotZero(t, created.ID)

	errUpdate := svc.Update(ctx, subjectOf(super), created.ID, UpdateAdminInput{Email: &longEmail})
	require.ErrorIs(t, errUpdate, ErrValidation)
}

func TestAdminUpdateAndDeleteOnlyTouchAdminRows(t *testing.T) {
	conn := openServiceTestDB(t)
	super := seedAccount(t, conn, "root", "secret1", models.RoleSuperAdmin)
	admin := seedAccount(t, conn, "ops", "secret1", models.RoleAdmin)
	player := seedAccount(t, conn, "player", "secret1", models.RoleUser)
	svc := NewAdminService(conn)
	ctx := context.Background()
	role := models.RoleSuperAdmin

	require.NoError(t, svc.Update(ctx, subjectOf(super), admin.ID, UpdateAdminInput{Role: &role}))
	var stored models.Account
	require.NoError(t, conn.First(&stored, admin.ID).Error)
	require.Equal(t, models.RoleSuperAdmin, stored.Role)

	require.ErrorIs(t, svc.Update(ctx, subjectOf(super), player.ID, UpdateAdminInput{Role: &role}), ErrNotFound)
	require.ErrorIs(t, svc.Update(ctx, subjectOf(super), admin.ID, UpdateAdminInput{}), ErrValidation)

	require.ErrorIs(t, svc.Delete(ctx, subjectOf(super), player.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, subjectOf(super), admin.ID))
	require.ErrorIs(t, svc.Delete(ctx, subjectOf(super), admin.ID), ErrNotFound)
	require.EqualValues(t, 1, countRows(t, conn, &models.Account{}, "id = ?", player.ID))
}

func TestAdminMutationsForbiddenForAdminRole(t *testing.T) {
	conn := openServiceTestDB(t)
	super := seedAccount(t, conn, "root", "secret1", models.RoleSuperAdmin)
	admin := seedAccount(t, conn, "ops", "secret1", models.RoleAdmin)
	svc := NewAdminService(conn)
	ctx := context.Background()

	_, errCreate := svc.Create(ctx, subjectOf(admin), CreateAdminInput{Username: "x", Password: "y", Role: models.RoleAdmin})
	require.ErrorIs(t, errCreate, ErrForbidden)
	require.ErrorIs(t, svc.Delete(ctx, subjectOf(admin), super.ID), ErrForbidden)
	require.ErrorIs(t, svc.Delete(ctx, subjectOf(admin), 9999), ErrForbidden)
}

func TestChangePasswordRules(t *testing.T) {
	conn := openServiceTestDB(t)
	super := seedAccount(t, conn, "root", "secret1", models.RoleSuperAdmin)
	admin := seedAccount(t, conn, "ops", "old-pass", models.RoleAdmin)
	other := seedAccount(t, conn, "ops2", "secret1", models.RoleAdmin)
	svc := NewAdminService(conn)
	ctx := context.Background()

	require.ErrorIs(t, svc.ChangePassword(ctx, subjectOf(admin), admin.ID, "wrong", "new-pass"), ErrInvalidCredentials)
	require.ErrorIs(t, svc.ChangePassword(ctx, subjectOf(admin), admin.ID, "", "new-pass"), ErrInvalidCredentials)
	require.NoError(t, svc.ChangePassword(ctx, subjectOf(admin), admin.ID, "old-pass", "new-pass"))

	require.ErrorIs(t, svc.ChangePassword(ctx, subjectOf(admin), other.ID, "secret1", "x"), ErrForbidden)
	require.ErrorIs(t, svc.ChangePassword(ctx, subjectOf(admin), admin.ID, "new-pass", ""), ErrValidation)

	require.NoError(t, svc.ChangePassword(ctx, subjectOf(super), admin.ID, "", "reset-pass"))
	require.ErrorIs(t, svc.ChangePassword(ctx, subjectOf(super), 9999, "", "x"), ErrNotFound)

	var stored models.Account
	require.NoError(t, conn.First(&stored, admin.ID).Error)
	require.True(t, security.CheckPassword(stored.Password, "reset-pass"))
}

func TestEnsureSuperAdminIsIdempotent(t *testing.T) {
	conn := openServiceTestDB(t)
	svc := NewAdminService(conn)
	ctx := context.Background()

	created, errFirst := svc.EnsureSuperAdmin(ctx, "root", "secret1", "")
	require.NoError(t, errFirst)
	require.True(t, created)

	created, errSecond := svc.EnsureSuperAdmin(ctx, "root", "other-pass", "")
	require.NoError(t, errSecond)
	require.False(t, created)

	var stored models.Account
	require.NoError(t, conn.Where("username = ?", "root").First(&stored).Error)
	require.Equal(t, models.RoleSuperAdmin, stored.Role)
	require.Nil(t, stored.Email)
	require.True(t, security.CheckPassword(stored.Password, "secret1"))
}

func TestResetPassword(t *testing.T) {
	conn := openServiceTestDB(t)
	account := seedAccount(t, conn, "ops", "secret1", models.RoleAdmin)
	svc := NewAdminService(conn)

	require.NoError(t, svc.ResetPassword(context.Background(), "ops", "fresh-pass"))
	require.ErrorIs(t, svc.ResetPassword(context.Background(), "ghost", "x"), ErrNotFound)

	var stored models.Account
	require.NoError(t, conn.First(&stored, account.ID).Error)
	require.True(t, security.CheckPassword(stored.Password, "fresh-pass"))
}
