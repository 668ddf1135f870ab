// Package admin wires the gift administration API onto a gin engine.
package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/http/api/admin/handlers"
	"github.com/router-for-me/GiftAdmin/internal/service"
	"gorm.io/gorm"
)

// Services bundles the domain services the routes dispatch to.
type Services struct {
	DB          *gorm.DB
	Auth        *service.AuthService
	Admins      *service.AdminService
	GiftCodes   *service.GiftCodeService
	Eligibility *service.EligibilityService
	Posts       *service.PostService
	MFA         *service.MFAService
}

// Options controls transport behavior of the routes.
type Options struct {
	CORSOrigins []string // empty allows any origin
	Development bool     // expose error text in 500 responses
}

// RegisterRoutes registers every API route on r. It installs CORS on the
// engine, so it must run before other routes are added.
func RegisterRoutes(r *gin.Engine, svc Services, opts Options) {
	if r == nil || svc.DB == nil {
		return
	}

	r.Use(corsMiddleware(opts.CORSOrigins))

	api := r.Group("/api")
	api.Use(handlers.ErrorDetail(opts.Development))

	healthHandler := handlers.NewHealthHandler(svc.DB)
	r.GET("/healthz", healthHandler.Healthz)
	api.GET("/test-connection", healthHandler.TestConnection)

	authHandler := handlers.NewAuthHandler(svc.Auth)
	api.POST("/auth/login", authHandler.Login)

	eligibilityHandler := handlers.NewEligibilityHandler(svc.Eligibility)
	api.POST("/eligible-accounts", eligibilityHandler.Mark)

	postHandler := handlers.NewPostHandler(svc.Posts)
	api.PUT("/posts/:postId/status", postHandler.UpdateStatus)

	authed := api.Group("")
	authed.Use(authMiddleware(svc.Auth))

	authed.GET("/auth/me", authHandler.Me)

	mfaHandler := handlers.NewMFAHandler(svc.MFA)
	authed.GET("/auth/mfa/status", mfaHandler.Status)
	authed.POST("/auth/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/auth/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/auth/mfa/totp/disable", mfaHandler.DisableTOTP)

	adminHandler := handlers.NewAdminHandler(svc.Admins)
	authed.GET("/admin/list", adminHandler.List)
	authed.GET("/admin/by-username/:username", adminHandler.GetByUsername)
	authed.POST("/admin/create", adminHandler.Create)
	authed.PUT("/admin/:id", adminHandler.Update)
	authed.DELETE("/admin/:id", adminHandler.Delete)
	authed.PUT("/admin/:id/password", adminHandler.ChangePassword)

	giftCodeHandler := handlers.NewGiftCodeHandler(svc.GiftCodes)
	authed.GET("/gift-codes", giftCodeHandler.List)
	authed.POST("/gift-codes", giftCodeHandler.Create)
	authed.DELETE("/gift-codes/:id", giftCodeHandler.Delete)
	authed.PATCH("/gift-codes/:id/extend", giftCodeHandler.Extend)
	authed.PATCH("/gift-codes/:id/accounts", giftCodeHandler.UpdateAccounts)
	authed.GET("/gift-codes/:id/redemptions", giftCodeHandler.Redemptions)
	authed.GET("/gift-codes/:id/logs", giftCodeHandler.Logs)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowed = append(allowed, trimmed)
		}
	}
	if len(allowed) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowed
	}
	return cors.New(cfg)
}

// authMiddleware verifies the bearer token and stores the caller on the context.
func authMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		fields := strings.Fields(c.GetHeader("Authorization"))
		if len(fields) < 2 {
			handlers.MissingToken(c)
			return
		}
		subject, errVerify := auth.VerifyToken(fields[1])
		if errVerify != nil {
			handlers.InvalidToken(c)
			return
		}
		handlers.SetSubject(c, subject)
		c.Next()
	}
}
