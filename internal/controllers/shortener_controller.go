package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkgate/internal/analytics"
	"linkgate/internal/entities"
	"linkgate/internal/gate"
	"linkgate/internal/middleware"
	"linkgate/internal/models"
	"linkgate/internal/service"
)

const (
	// SiteTokenHeader and SiteTokenCookie carry the private-mode access token.
	SiteTokenHeader = "X-Site-Token"
	SiteTokenCookie = "site_access"
)

type ShortenerController struct {
	linkService service.LinkService
	baseURL     string
}

func NewShortenerController(linkService service.LinkService, baseURL string) *ShortenerController {
	return &ShortenerController{
		linkService: linkService,
		baseURL:     baseURL,
	}
}

// CreateShortURL handles POST /api/shorten
func (sc *ShortenerController) CreateShortURL(c *gin.Context) {
	var req models.ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in := service.ShortenInput{
		URL:       req.URL,
		ExpiresIn: req.ExpiresIn,
		SourceIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if opts := req.CustomOptions; opts != nil {
		in.Options = entities.CustomOptions{
			Password:      opts.Password,
			IsPrivate:     opts.IsPrivate,
			RedirectDelay: opts.RedirectDelay,
		}
	}

	result, err := sc.linkService.Shorten(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewLinkResponse(result.Link, sc.baseURL))
}

// RedirectToOriginal handles GET /:shortCode
func (sc *ShortenerController) RedirectToOriginal(c *gin.Context) {
	link, err := sc.linkService.Resolve(c.Request.Context(), service.ResolveInput{
		Code:    c.Param("shortCode"),
		Caller:  callerOf(c),
		Request: requestInfo(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// Every hit must reach us to be counted.
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, link.OriginalURL)
}

// VerifyPassword handles POST /api/verify-password/:shortCode. A correct
// password resolves the link and counts as a click.
func (sc *ShortenerController) VerifyPassword(c *gin.Context) {
	var req models.VerifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	link, err := sc.linkService.Resolve(c.Request.Context(), service.ResolveInput{
		Code:     c.Param("shortCode"),
		Password: req.Password,
		Caller:   callerOf(c),
		Request:  requestInfo(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VerifyPasswordResponse{
		Success:     true,
		OriginalURL: link.OriginalURL,
	})
}

func callerOf(c *gin.Context) gate.Caller {
	token := strings.TrimSpace(c.GetHeader(SiteTokenHeader))
	if token == "" {
		token, _ = c.Cookie(SiteTokenCookie)
	}
	return gate.Caller{IsAdmin: middleware.IsAdmin(c), SiteToken: token}
}

func requestInfo(c *gin.Context) analytics.RequestInfo {
	country := c.GetHeader("CF-IPCountry")
	if country == "" {
		country = c.GetHeader("X-Country-Code")
	}
	return analytics.RequestInfo{
		Referer:     c.Request.Referer(),
		UserAgent:   c.Request.UserAgent(),
		CountryCode: country,
	}
}
