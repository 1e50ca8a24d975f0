package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"linkgate/internal/analytics"
	"linkgate/internal/apperr"
	"linkgate/internal/gate"
)

// SiteChecker evaluates the site mode for a caller.
type SiteChecker interface {
	CheckSite(ctx context.Context, caller gate.Caller) error
}

type StatsController struct {
	aggregator *analytics.Aggregator
	site       SiteChecker
}

func NewStatsController(aggregator *analytics.Aggregator, site SiteChecker) *StatsController {
	return &StatsController{aggregator: aggregator, site: site}
}

// GetStats handles GET /api/stats. It sits behind the same site mode as
// redirects. Private and password-protected links are left out of the top
// lists but still count toward the totals.
func (sc *StatsController) GetStats(c *gin.Context) {
	if err := sc.site.CheckSite(c.Request.Context(), callerOf(c)); err != nil {
		respondError(c, err)
		return
	}

	rollups, err := sc.aggregator.Rollups(c.Request.Context(), analytics.RollupOptions{})
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "failed to compute stats", err))
		return
	}
	c.JSON(http.StatusOK, rollups)
}
