package controllers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"linkgate/internal/analytics"
	"linkgate/internal/apperr"
	"linkgate/internal/entities"
	"linkgate/internal/logging"
	"linkgate/internal/models"
	"linkgate/internal/service"
)

var exportHeader = []string{
	"short_code", "short_url", "original_url", "clicks", "created_at", "expires_at",
	"expires_in", "is_active", "is_expired", "is_private", "password_protected", "description",
}

// AdminController serves /api/admin. Every route sits behind RequireAdmin.
type AdminController struct {
	adminService service.AdminService
	aggregator   *analytics.Aggregator
	baseURL      string
}

func NewAdminController(adminService service.AdminService, aggregator *analytics.Aggregator, baseURL string) *AdminController {
	return &AdminController{
		adminService: adminService,
		aggregator:   aggregator,
		baseURL:      baseURL,
	}
}

// ListLinks handles GET /api/admin/links
func (ac *AdminController) ListLinks(c *gin.Context) {
	links, err := ac.adminService.ListLinks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	resp := make([]models.AdminLinkResponse, 0, len(links))
	for _, link := range links {
		resp = append(resp, models.NewAdminLinkResponse(link, ac.baseURL, now))
	}
	c.JSON(http.StatusOK, gin.H{"links": resp, "total": len(resp)})
}

// DeleteLink handles DELETE /api/admin/links/:shortCode
func (ac *AdminController) DeleteLink(c *gin.Context) {
	if err := ac.adminService.DeleteLink(c.Request.Context(), c.Param("shortCode")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleLink handles PATCH /api/admin/links/:shortCode/toggle
func (ac *AdminController) ToggleLink(c *gin.Context) {
	link, err := ac.adminService.ToggleLink(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAdminLinkResponse(link, ac.baseURL, time.Now()))
}

// UpdateDescription handles PATCH /api/admin/links/:shortCode/description
func (ac *AdminController) UpdateDescription(c *gin.Context) {
	var req models.UpdateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	link, err := ac.adminService.UpdateDescription(c.Request.Context(), c.Param("shortCode"), req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAdminLinkResponse(link, ac.baseURL, time.Now()))
}

// ExportLinks handles GET /api/admin/links/export
func (ac *AdminController) ExportLinks(c *gin.Context) {
	links, err := ac.adminService.ListLinks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="links-`+now.UTC().Format("20060102")+`.csv"`)
	c.Status(http.StatusOK)

	if err := writeExport(csv.NewWriter(c.Writer), links, ac.baseURL, now); err != nil {
		// Headers are already sent, all we can do is log.
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("csv export interrupted")
	}
}

// writeExport writes the header and one row per link, stopping at the first
// failed write.
func writeExport(w *csv.Writer, links []*entities.ShortLink, baseURL string, now time.Time) error {
	if err := w.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, link := range links {
		if err := w.Write(exportRow(link, baseURL, now)); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", link.ShortCode, err)
		}
	}
	w.Flush()
	return w.Error()
}

func exportRow(link *entities.ShortLink, baseURL string, now time.Time) []string {
	expiresAt := ""
	if link.ExpiresAt != nil {
		expiresAt = link.ExpiresAt.UTC().Format(time.RFC3339)
	}
	description := ""
	if link.Description != nil {
		description = *link.Description
	}
	return []string{
		link.ShortCode,
		baseURL + "/" + link.ShortCode,
		link.OriginalURL,
		strconv.FormatInt(link.Clicks, 10),
		link.CreatedAt.UTC().Format(time.RFC3339),
		expiresAt,
		string(link.ExpiryPolicy),
		strconv.FormatBool(link.IsActive),
		strconv.FormatBool(link.IsExpired(now)),
		strconv.FormatBool(link.CustomOptions.IsPrivate),
		strconv.FormatBool(link.CustomOptions.HasPassword()),
		description,
	}
}

// Analytics handles GET /api/admin/analytics
func (ac *AdminController) Analytics(c *gin.Context) {
	rollups, err := ac.aggregator.Rollups(c.Request.Context(), analytics.RollupOptions{
		IncludePrivate:    true,
		IncludeBreakdowns: true,
	})
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "failed to compute analytics", err))
		return
	}
	c.JSON(http.StatusOK, rollups)
}

// Cleanup handles POST /api/admin/cleanup
func (ac *AdminController) Cleanup(c *gin.Context) {
	codes, err := ac.adminService.Cleanup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if codes == nil {
		codes = []string{}
	}
	c.JSON(http.StatusOK, models.CleanupResponse{Purged: len(codes), Codes: codes})
}
