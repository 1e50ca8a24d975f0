package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkgate/internal/models"
	"linkgate/internal/service"
)

type SiteController struct {
	siteService  service.SiteService
	secureCookie bool
}

func NewSiteController(siteService service.SiteService, secureCookie bool) *SiteController {
	return &SiteController{
		siteService:  siteService,
		secureCookie: secureCookie,
	}
}

// Status handles GET /api/site/status
func (sc *SiteController) Status(c *gin.Context) {
	settings, err := sc.siteService.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewSiteStatusResponse(settings))
}

// Unlock handles POST /api/site/unlock. The token is returned in the body
// and also set as a cookie for browser clients.
func (sc *SiteController) Unlock(c *gin.Context) {
	var req models.UnlockSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	token, expiresAt, err := sc.siteService.Unlock(c.Request.Context(), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	maxAge := int(time.Until(expiresAt) / time.Second)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SiteTokenCookie, token, maxAge, "/", "", sc.secureCookie, true)

	c.JSON(http.StatusOK, models.UnlockSiteResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// GetSettings handles GET /api/admin/settings
func (sc *SiteController) GetSettings(c *gin.Context) {
	settings, err := sc.siteService.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewSettingsResponse(settings))
}

// UpdateSettings handles PUT /api/admin/settings
func (sc *SiteController) UpdateSettings(c *gin.Context) {
	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	settings, err := sc.siteService.Update(c.Request.Context(), service.UpdateSettingsInput{
		IsPrivate:                req.IsPrivate,
		IsMaintenanceMode:        req.IsMaintenanceMode,
		MaintenanceMessage:       req.MaintenanceMessage,
		EstimatedCompletion:      req.EstimatedCompletion,
		ClearEstimatedCompletion: req.ClearEstimatedCompletion,
		SitePassword:             req.SitePassword,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewSettingsResponse(settings))
}
