package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/router-for-me/GiftAdmin/internal/models"
	"github.com/router-for-me/GiftAdmin/internal/policy"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestGiftCodeService(t *testing.T) (*GiftCodeService, *gorm.DB, policy.Subject) {
	t.Helper()
	conn := openServiceTestDB(t)
	operator := seedAccount(t, conn, "ops", "secret1", models.RoleAdmin)
	return NewGiftCodeService(conn, NewAuditRecorder(conn), time.UTC), conn, subjectOf(operator)
}

func createTestCode(t *testing.T, svc *GiftCodeService, caller policy.Subject, code, codeType string) uint64 {
	t.Helper()
	id, errCreate := svc.Create(context.Background(), caller, CreateGiftCodeInput{
		Code:       code,
		Type:       codeType,
		Rewards:    json.RawMessage(`{"gold":100}`),
		ExpiryDate: "2030-01-01",
	})
	require.NoError(t, errCreate)
	return id
}

func TestGiftCodeCreateWritesAuditEntry(t *testing.T) {
	svc, conn, caller := newTestGiftCodeService(t)

	id := createTestCode(t, svc, caller, "WELCOME", models.GiftCodeTypeGeneral)

	var stored models.GiftCode
	require.NoError(t, conn.First(&stored, id).Error)
	require.Equal(t, "WELCOME", stored.Code)
	require.True(t, stored.ExpiryDate.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.JSONEq(t, `{"gold":100}`, string(stored.Rewards))

	var entries []models.GiftLog
	require.NoError(t, conn.Where("code_id = ?", id).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, models.GiftLogActionCreate, entries[0].ActionType)
	require.Equal(t, "WELCOME", entries[0].Code)
	require.Equal(t, auditDetailCreate, entries[0].Details)
	require.NotNil(t, entries[0].OperatorID)
	require.Equal(t, caller.ID, *entries[0].OperatorID)
}

func TestGiftCodeCreateRejectsDuplicateAndInvalidInput(t *testing.T) {
	svc, conn, caller := newTestGiftCodeService(t)
	ctx := context.Background()
	createTestCode(t, svc, caller, "WELCOME", models.GiftCodeTypeGeneral)

	_, errDup := svc.Create(ctx, caller, CreateGiftCodeInput{Code: "WELCOME", Type: "general", ExpiryDate: "2030-01-01"})
	require.ErrorIs(t, errDup, ErrDuplicateCode)
	require.EqualValues(t, 1, countRows(t, conn, &models.GiftCode{}, ""))
	require.EqualValues(t, 1, countRows(t, conn, &models.GiftLog{}, ""))

	_, errMissing := svc.Create(ctx, caller, CreateGiftCodeInput{Code: "X", ExpiryDate: "2030-01-01"})
	require.ErrorIs(t, errMissing, ErrValidation)

	_, errDate := svc.Create(ctx, caller, CreateGiftCodeInput{Code: "X", Type: "general", ExpiryDate: "someday"})
	require.ErrorIs(t, errDate, ErrValidation)

	_, errAccounts := svc.Create(ctx, caller, CreateGiftCodeInput{
		Code: "X", Type: "specific", ExpiryDate: "2030-01-01", SpecificAccounts: json.RawMessage(`{"a":1}`),
	})
	require.ErrorIs(t, errAccounts, ErrValidation)

	_, errLongCode := svc.Create(ctx, caller, CreateGiftCodeInput{
		Code: strings.Repeat("C", models.MaxGiftCodeLength+1), Type: "general", ExpiryDate: "2030-01-01",
	})
	require.ErrorIs(t, errLongCode, ErrValidation)

	_, errLongType := svc.Create(ctx, caller, CreateGiftCodeInput{
		Code: "LONGTYPE", Type: strings.Repeat("t", models.MaxGiftCodeTypeLength+1), ExpiryDate: "2030-01-01",
	})
	require.ErrorIs(t, errLongType, ErrValidation)
	require.EqualValues(t, 1, countRows(t, conn, &models.GiftCode{}, ""))

	createTestCode(t, svc, caller, strings.Repeat("C", models.MaxGiftCodeLength), models.GiftCodeTypeGeneral)
}

func TestGiftCodeListIncludesRedeemCounts(t *testing.T) {
	svc, conn, caller := newTestGiftCodeService(t)
	ctx := context.Background()
	first := createTestCode(t, svc, caller, "FIRST", models.GiftCodeTypeGeneral)
	second := createTestCode(t, svc, caller, "SECOND", models.GiftCodeTypeGeneral)
	now := time.Now().UTC()
	for _, accountID := range []string{"a1", "a2", "a3"} {
		require.NoError(t, conn.Create(&models.GiftCodeRedemption{CodeID: first, AccountID: accountID, RedeemedAt: now}).Error)
	}

	page, errList := svc.List(ctx, caller, NewPageRequest(1, 10))
	require.NoError(t, errList)
	require.EqualValues(t, 2, page.Total)
	require.Len(t, page.Data, 2)
	counts := map[uint64]int64{}
	for _, view := range page.Data {
		counts[view.ID] = view.RedeemCount
	}
	require.EqualValues(t, 3, counts[first])
	require.EqualValues(t, 0, counts[second])

	paged, errPaged := svc.List(ctx, caller, NewPageRequest(2, 1))
	require.NoError(t, errPaged)
	require.EqualValues(t, 2, paged.Total)
	require.Len(t, paged.Data, 1)
	require.Equal(t, 2, paged.Page)
	require.Equal(t, 1, paged.PageSize)

	empty, errEmpty := svc.List(ctx, caller, NewPageRequest(5, 10))
	require.NoError(t, errEmpty)
	require.NotNil(t, empty.Data)
	require.Empty(t, empty.Data)
}

func TestGiftCodeDeleteCascadesAndAuditsOnce(t *testing.T) {
	svc, conn, caller := newTestGiftCodeService(t)
	ctx := context.Background()
	id := createTestCode(t, svc, caller, "GONE", models.GiftCodeTypeGeneral)
	keep := createTestCode(t, svc, caller, "KEEP", models.GiftCodeTypeGeneral)
	now := time.Now().UTC()
	require.NoError(t, conn.Create(&models.GiftCodeRedemption{CodeID: id, AccountID: "a1", RedeemedAt: now}).Error)
	require.NoError(t, conn.Create(&models.GiftCodeRedemption{CodeID: id, AccountID: "a2", RedeemedAt: now}).Error)
	require.NoError(t, conn.Create(&models.GiftCodeRedemption{CodeID: keep, AccountID: "a1", RedeemedAt: now}).Error)

	require.NoError(t, svc.Delete(ctx, caller, id))

	require.EqualValues(t, 0, countRows(t, conn, &models.GiftCode{}, "id = ?", id))
	require.EqualValues(t, 0, countRows(t, conn, &models.GiftCodeRedemption{}, "code_id = ?", id))
	require.EqualValues(t, 1, countRows(t, conn, &models.GiftCodeRedemption{}, "code_id = ?", keep))
	require.EqualValues(t, 1, countRows(t, conn, &models.GiftLog{}, "code_id = ? AND action_type = ?", id, models.GiftLogActionDelete))

	logs, errLogs := svc.ListLogs(ctx, caller, id, NewPageRequest(1, 10))
	require.NoError(t, errLogs)
	require.EqualValues(t, 2, logs.Total)
}

func TestGiftCodeDeleteMissingHasNoSideEffects(t *testing.T) {
	svc, conn, caller := newTestGiftCodeService(t)
	createTestCode(t, svc, caller, "KEEP", models.GiftCodeTypeGeneral)
	logsBefore := countRows(t, conn, &models.GiftLog{}, "")

	require.ErrorIs(t, svc.Delete(context.Background(), caller, 9999), ErrNotFound)
	require.Equal(t, logsBefore, countRows(t, conn, &models.GiftLog{}, ""))
	require.EqualValues(t, 1, countRows(t, conn, &models.GiftCode{}, ""))
}

func TestGiftCodeExtend(t *testing.T) {
	svc, conn, caller := newTestGiftCodeService(t)
	ctx := context.Background()
	id := createTestCode(t, svc, caller, "LATER", models.GiftCodeTypeGeneral)

	require.NoError(t, svc.Extend(ctx, caller, id, "2031-06-30 12:00:00"))

	var stored models.GiftCode
	require.NoError(t, conn.First(&stored, id).Error)
	require.True(t, stored.ExpiryDate.Equal(time.Date(2031, 6, 30, 12, 0, 0, 0, time.UTC)))

	var entry models.GiftLog
	require.NoError(t, conn.Where("code_id = ? AND action_type = ?", id, models.GiftLogActionExtend).First(&entry).Error)
	require.Equal(t, "延長有效期至 2031-06-30 12:00:00", entry.Details)

	require.ErrorIs(t, svc.Extend(ctx, caller, 9999, "2031-01-01"), ErrNotFound)
	require.ErrorIs(t, svc.Extend(ctx, caller, id, ""), ErrValidation)
}

func TestUpdateSpecificAccountsRequiresSpecificType(t *testing.T) {
	svc, conn, caller := newTestGiftCodeService(t)
	ctx := context.Background()
	id := createTestCode(t, svc, caller, "PUBLIC", models.GiftCodeTypeGeneral)

	errUpdate := svc.UpdateSpecificAccounts(ctx, caller, id, json.RawMessage(`["a1","a2"]`))
	require.ErrorIs(t, errUpdate, ErrInvalidCodeType)

	var stored models.GiftCode
	require.NoError(t, conn.First(&stored, id).Error)
	require.Empty(t, stored.SpecificAccounts)
	require.EqualValues(t, 0, countRows(t, conn, &models.GiftLog{}, "action_type = ?", models.GiftLogActionUpdateAccounts))
}

func TestUpdateSpecificAccounts(t *testing.T) {
	svc, conn, caller := newTestGiftCodeService(t)
	ctx := context.Background()
	id := createTestCode(t, svc, caller, "VIP", models.GiftCodeTypeSpecific)

	require.NoError(t, svc.UpdateSpecificAccounts(ctx, caller, id, json.RawMessage(`"[\"a1\", 42]"`)))

	var stored models.GiftCode
	require.NoError(t, conn.First(&stored, id).Error)
	require.JSONEq(t, `["a1",42]`, string(stored.SpecificAccounts))
	require.EqualValues(t, 1, countRows(t, conn, &models.GiftLog{}, "action_type = ?", models.GiftLogActionUpdateAccounts))

	require.ErrorIs(t, svc.UpdateSpecificAccounts(ctx, caller, id, nil), ErrValidation)
	require.ErrorIs(t, svc.UpdateSpecificAccounts(ctx, caller, 9999, json.RawMessage(`[]`)), ErrNotFound)
}

func TestUpdateSpecificAccountsSucceedsWhenAuditFails(t *testing.T) {
	svc, conn, caller := newTestGiftCodeService(t)
	ctx := context.Background()
	id := createTestCode(t, svc, caller, "VIP", models.GiftCodeTypeSpecific)
	require.NoError(t, conn.Migrator().DropTable(&models.GiftLog{}))

	require.NoError(t, svc.UpdateSpecificAccounts(ctx, caller, id, json.RawMessage(`["a9"]`)))

	var stored models.GiftCode
	require.NoError(t, conn.First(&stored, id).Error)
	require.JSONEq(t, `["a9"]`, string(stored.SpecificAccounts))
}

func TestListRedemptionsNewestFirst(t *testing.T) {
	svc, conn, caller := newTestGiftCodeService(t)
	id := createTestCode(t, svc, caller, "PAGED", models.GiftCodeTypeGeneral)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, accountID := range []string{"a1", "a2", "a3"} {
		require.NoError(t, conn.Create(&models.GiftCodeRedemption{
			CodeID: id, AccountID: accountID, RedeemedAt: base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	page, errList := svc.ListRedemptions(context.Background(), caller, id, NewPageRequest(1, 2))
	require.NoError(t, errList)
	require.EqualValues(t, 3, page.Total)
	require.Len(t, page.Data, 2)
	require.Equal(t, "a3", page.Data[0].AccountID)
	require.Equal(t, "a2", page.Data[1].AccountID)

	none, errNone := svc.ListRedemptions(context.Background(), caller, 9999, NewPageRequest(1, 10))
	require.NoError(t, errNone)
	require.Zero(t, none.Total)
	require.Empty(t, none.Data)
}

func TestGiftCodesRequireAuthenticatedCaller(t *testing.T) {
	svc, _, _ := newTestGiftCodeService(t)

	_, errList := svc.List(context.Background(), policy.Subject{}, NewPageRequest(1, 10))
	require.ErrorIs(t, errList, ErrForbidden)
}

func TestNormalizeAccounts(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "array", raw: `["a", 1]`, want: `["a",1]`},
		{name: "encoded string", raw: `"[\"a\"]"`, want: `["a"]`},
		{name: "empty array", raw: `[]`, want: `[]`},
		{name: "object", raw: `{"a":1}`, wantErr: true},
		{name: "nested", raw: `[["a"]]`, wantErr: true},
		{name: "blank string", raw: `""`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeAccounts(json.RawMessage(tc.raw))
			if tc.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, string(got))
		})
	}
}

func TestParseExpiry(t *testing.T) {
	want := time.Date(2030, 5, 6, 7, 8, 9, 0, time.UTC)
	for _, raw := range []string{"2030-05-06T07:08:09Z", "2030-05-06 07:08:09", "2030-05-06T07:08:09"} {
		got, err := ParseExpiry(raw, time.UTC)
		require.NoError(t, err, raw)
		require.True(t, got.Equal(want), raw)
	}
	day, errDay := ParseExpiry("2030-05-06", time.UTC)
	require.NoError(t, errDay)
	require.True(t, day.Equal(time.Date(2030, 5, 6, 0, 0, 0, 0, time.UTC)))

	_, errBad := ParseExpiry("06/05/2030", time.UTC)
	require.ErrorIs(t, errBad, ErrValidation)
}

func TestGiftCodeListReadsScalarRewards(t *testing.T) {
	svc, _, caller := newTestGiftCodeService(t)
	ctx := context.Background()
	_, errCreate := svc.Create(ctx, caller, CreateGiftCodeInput{
		Code: "COINS", Type: models.GiftCodeTypeGeneral, Rewards: json.RawMessage(`100`), ExpiryDate: "2030-01-01",
	})
	require.NoError(t, errCreate)

	page, errList := svc.List(ctx, caller, NewPageRequest(1, 10))
	require.NoError(t, errList)
	require.Len(t, page.Data, 1)
	require.Equal(t, `100`, string(page.Data[0].Rewards))
}
