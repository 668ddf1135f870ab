package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/config"
	"github.com/router-for-me/GiftAdmin/internal/db"
	relayhttp "github.com/router-for-me/GiftAdmin/internal/http"
	adminapi "github.com/router-for-me/GiftAdmin/internal/http/api/admin"
	"github.com/router-for-me/GiftAdmin/internal/kv"
	"github.com/router-for-me/GiftAdmin/internal/metrics"
	"github.com/router-for-me/GiftAdmin/internal/retention"
	"github.com/router-for-me/GiftAdmin/internal/service"
	"github.com/router-for-me/GiftAdmin/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// openDatabase opens the configured store.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	return db.Open(cfg.DatabaseDSN(), db.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		TimeZone:     cfg.Database.TimeZone,
	})
}

// eligibilityLocation resolves the zone that defines the eligibility date.
func eligibilityLocation(cfg config.Config) (*time.Location, error) {
	name := strings.TrimSpace(cfg.Eligibility.TimeZone)
	if name == "" {
		return time.Local, nil
	}
	loc, errLoad := time.LoadLocation(name)
	if errLoad != nil {
		return nil, fmt.Errorf("app: eligibility time zone: %w", errLoad)
	}
	return loc, nil
}

// NewServices builds the domain services over conn.
func NewServices(conn *gorm.DB, cfg config.Config, limiter service.LoginLimiter) (adminapi.Services, error) {
	loc, errLoc := eligibilityLocation(cfg)
	if errLoc != nil {
		return adminapi.Services{}, errLoc
	}
	return adminapi.Services{
		DB:          conn,
		Auth:        service.NewAuthService(conn, cfg.JWT, limiter),
		Admins:      service.NewAdminService(conn),
		GiftCodes:   service.NewGiftCodeService(conn, service.NewAuditRecorder(conn), loc),
		Eligibility: service.NewEligibilityService(conn, loc),
		Posts:       service.NewPostService(conn),
		MFA:         service.NewMFAService(conn),
	}, nil
}

// NewRouter assembles the gin engine with middleware, API routes and /metrics.
func NewRouter(svc adminapi.Services, cfg config.Config) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), relayhttp.RequestLogger(), relayhttp.Metrics())
	adminapi.RegisterRoutes(engine, svc, adminapi.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Development: cfg.IsDevelopment(),
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	return engine
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.Config) error {
	conn, errOpen := openDatabase(cfg)
	if errOpen != nil {
		return errOpen
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("database migrated")
	return nil
}

// RunServer migrates the schema and serves the API until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.Config) error {
	if errValidate := cfg.Validate(); errValidate != nil {
		return errValidate
	}
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, errOpen := openDatabase(cfg)
	if errOpen != nil {
		return errOpen
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	store := settings.NewStore()
	if errRefresh := store.Refresh(ctx, conn); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings: initial load failed")
	}

	redisClient := kv.NewClient(cfg.Redis)
	if redisClient != nil {
		defer func() {
			if errClose := redisClient.Close(); errClose != nil {
				log.WithError(errClose).Warn("redis: close failed")
			}
		}()
	}
	limiter := kv.NewLoginLimiter(redisClient, cfg.Redis)
	if !limiter.Enabled() {
		log.Info("login throttling disabled (no redis address)")
	}

	svc, errServices := NewServices(conn, cfg, limiter)
	if errServices != nil {
		return errServices
	}
	if cleaner := retention.NewEligibilityCleaner(conn, store, cfg.Eligibility.RetentionDays, svc.Eligibility.Location()); cleaner != nil {
		cleaner.Start(ctx)
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           NewRouter(svc, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("gift admin listening on %s (mode=%s)", server.Addr, cfg.Server.Mode)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("server shutdown error")
		}
		log.Info("server stopped")
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// Bootstrap creates the configured super_admin when the username is free.
func Bootstrap(ctx context.Context, cfg config.Config) error {
	username := strings.TrimSpace(cfg.Bootstrap.Username)
	if username == "" {
		return errors.New("app: bootstrap.username is not configured")
	}
	if len(cfg.Bootstrap.Password) < 6 {
		return errors.New("app: bootstrap.password must be at least 6 characters")
	}
	conn, errOpen := openDatabase(cfg)
	if errOpen != nil {
		return errOpen
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	created, errEnsure := service.NewAdminService(conn).EnsureSuperAdmin(ctx, username, cfg.Bootstrap.Password, cfg.Bootstrap.Email)
	if errEnsure != nil {
		return errEnsure
	}
	if created {
		log.Infof("super admin %q created", username)
	} else {
		log.Infof("account %q already exists, nothing to do", username)
	}
	return nil
}

// CheckDB pings the store and returns its table names.
func CheckDB(ctx context.Context, cfg config.Config) ([]string, error) {
	conn, errOpen := openDatabase(cfg)
	if errOpen != nil {
		return nil, errOpen
	}
	defer closeDatabase(conn)
	if errPing := db.Ping(ctx, conn); errPing != nil {
		return nil, fmt.Errorf("app: ping database: %w", errPing)
	}
	tables, errTables := db.ListTables(conn.WithContext(ctx))
	if errTables != nil {
		return nil, fmt.Errorf("app: list tables: %w", errTables)
	}
	return tables, nil
}

// ResetPassword sets a new password for username.
func ResetPassword(ctx context.Context, cfg config.Config, username, password string) error {
	if len(password) < 6 {
		return errors.New("app: password must be at least 6 characters")
	}
	conn, errOpen := openDatabase(cfg)
	if errOpen != nil {
		return errOpen
	}
	defer closeDatabase(conn)
	if errReset := service.NewAdminService(conn).ResetPassword(ctx, username, password); errReset != nil {
		if errors.Is(errReset, service.ErrNotFound) {
			return fmt.Errorf("app: account %q not found", strings.TrimSpace(username))
		}
		return errReset
	}
	log.Infof("password reset for %q", strings.TrimSpace(username))
	return nil
}

func closeDatabase(conn *gorm.DB) {
	if errClose := db.Close(conn); errClose != nil {
		log.WithError(errClose).Warn("database close failed")
	}
}
