package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/config"
	"github.com/router-for-me/GiftAdmin/internal/db"
	"github.com/router-for-me/GiftAdmin/internal/models"
	"github.com/router-for-me/GiftAdmin/internal/security"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Name = filepath.Join(t.TempDir(), "app.db")
	cfg.JWT.Secret = "app-test-secret"
	cfg.Bootstrap = config.BootstrapConfig{Username: "root", Password: "root-pass", Email: "root@example.com"}
	return cfg
}

func TestBootstrapCreatesSuperAdminOnce(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx := context.Background()

	require.NoError(t, Bootstrap(ctx, cfg))
	require.NoError(t, Bootstrap(ctx, cfg))

	conn, errOpen := openDatabase(cfg)
	require.NoError(t, errOpen)
	defer closeDatabase(conn)

	var accounts []models.Account
	require.NoError(t, conn.Where("username = ?", "root").Find(&accounts).Error)
	require.Len(t, accounts, 1)
	require.Equal(t, models.RoleSuperAdmin, accounts[0].Role)
	require.True(t, security.CheckPassword(accounts[0].Password, "root-pass"))
}

func TestBootstrapRequiresCredentials(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Bootstrap.Username = ""
	require.Error(t, Bootstrap(context.Background(), cfg))

	cfg = sqliteConfig(t)
	cfg.Bootstrap.Password = "123"
	require.Error(t, Bootstrap(context.Background(), cfg))
}

func TestResetPassword(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx := context.Background()
	require.NoError(t, Bootstrap(ctx, cfg))

	require.NoError(t, ResetPassword(ctx, cfg, "root", "fresh-pass"))

	conn, errOpen := openDatabase(cfg)
	require.NoError(t, errOpen)
	defer closeDatabase(conn)
	var account models.Account
	require.NoError(t, conn.Where("username = ?", "root").First(&account).Error)
	require.True(t, security.CheckPassword(account.Password, "fresh-pass"))

	errMissing := ResetPassword(ctx, cfg, "nobody", "fresh-pass")
	require.Error(t, errMissing)
	require.Contains(t, errMissing.Error(), "not found")
}

func TestCheckDBListsMigratedTables(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, cfg))

	tables, errCheck := CheckDB(ctx, cfg)
	require.NoError(t, errCheck)
	require.Contains(t, tables, "WebAccount")
	require.Contains(t, tables, "gift_codes")
	require.Contains(t, tables, "daily_gift_eligible_accounts")
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := sqliteConfig(t)

	conn, errOpen := openDatabase(cfg)
	require.NoError(t, errOpen)
	defer closeDatabase(conn)
	require.NoError(t, db.Migrate(conn))

	svc, errServices := NewServices(conn, cfg, nil)
	require.NoError(t, errServices)
	router := NewRouter(svc, cfg)

	health := httptest.NewRecorder()
	router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, health.Code)
	require.NotEmpty(t, health.Header().Get("X-Request-ID"))

	scrape := httptest.NewRecorder()
	router.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, scrape.Code)
	body, errRead := io.ReadAll(scrape.Body)
	require.NoError(t, errRead)
	require.True(t, strings.Contains(string(body), "giftadmin_http_requests_total"))
}

func TestNewServicesRejectsUnknownZone(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Eligibility.TimeZone = "Mars/Olympus"
	_, errServices := NewServices(nil, cfg, nil)
	require.Error(t, errServices)
}
