package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"linkgate/internal/analytics"
	"linkgate/internal/entities"
	"linkgate/internal/logging"
	"linkgate/internal/middleware"
	"linkgate/internal/service"
)

// RouterDeps gathers everything the HTTP surface is built from.
type RouterDeps struct {
	BaseURL        string
	AdminToken     string
	CORSOrigins    []string
	TrustedProxies []string

	Links      service.LinkService
	Admin      service.AdminService
	Site       service.SiteService
	Aggregator *analytics.Aggregator
	SiteGate   SiteChecker

	// PasswordLimiter throttles link-password and site-password attempts.
	PasswordLimiter *middleware.RateLimiter
	HealthChecks    map[string]HealthCheck
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	registerValidators()

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(),
		gin.Recovery(),
		cors.New(corsConfig(deps.CORSOrigins)),
		middleware.AdminIdentity(deps.AdminToken),
	)
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		logging.Warn().Err(err).Strs("proxies", deps.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	shortenerController := NewShortenerController(deps.Links, deps.BaseURL)
	qrcodeController := NewQRCodeController(deps.Links, deps.BaseURL)
	statsController := NewStatsController(deps.Aggregator, deps.SiteGate)
	siteController := NewSiteController(deps.Site, strings.HasPrefix(deps.BaseURL, "https://"))
	adminController := NewAdminController(deps.Admin, deps.Aggregator, deps.BaseURL)
	healthController := NewHealthController(deps.HealthChecks)

	router.GET("/health", healthController.Health)
	router.GET("/metrics", middleware.MetricsHandler())

	// Redirects are never throttled
	router.GET("/:shortCode", shortenerController.RedirectToOriginal)

	guard := deps.PasswordLimiter.Limit()

	api := router.Group("/api")
	{
		api.POST("/shorten", shortenerController.CreateShortURL)
		api.POST("/verify-password/:shortCode", guard, shortenerController.VerifyPassword)
		api.GET("/stats", statsController.GetStats)
		api.GET("/qrcode/:shortCode", qrcodeController.GenerateQRCode)

		site := api.Group("/site")
		{
			site.GET("/status", siteController.Status)
			site.POST("/unlock", guard, siteController.Unlock)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/links", adminController.ListLinks)
			admin.GET("/links/export", adminController.ExportLinks)
			admin.DELETE("/links/:shortCode", adminController.DeleteLink)
			admin.PATCH("/links/:shortCode/toggle", adminController.ToggleLink)
			admin.PATCH("/links/:shortCode/description", adminController.UpdateDescription)
			admin.GET("/analytics", adminController.Analytics)
			admin.GET("/settings", siteController.GetSettings)
			admin.PUT("/settings", siteController.UpdateSettings)
			admin.POST("/cleanup", adminController.Cleanup)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", SiteTokenHeader, middleware.RequestIDHeader},
		ExposeHeaders: []string{"Retry-After", middleware.RequestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// registerValidators adds the custom binding tags used by the request models.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		_, ok := entities.ParseExpiryPolicy(fl.Field().String())
		return ok
	})
}
