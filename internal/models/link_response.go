package models

import (
	"time"

	"linkgate/internal/entities"
)

// LinkResponse is the public view of a link. The link password is never
// echoed; only whether one is set.
type LinkResponse struct {
	ShortURL      string                 `json:"shortUrl"`
	ShortCode     string                 `json:"shortCode"`
	OriginalURL   string                 `json:"originalUrl"`
	Clicks        int64                  `json:"clicks"`
	CreatedAt     time.Time              `json:"createdAt"`
	ExpiresAt     *time.Time             `json:"expiresAt,omitempty"`
	ExpiryPolicy  entities.ExpiryPolicy  `json:"expiresIn"`
	CustomOptions *CustomOptionsResponse `json:"customOptions,omitempty"`
}

type CustomOptionsResponse struct {
	PasswordProtected bool `json:"passwordProtected"`
	IsPrivate         bool `json:"isPrivate"`
	RedirectDelay     int  `json:"redirectDelay,omitempty"`
}

func NewLinkResponse(link *entities.ShortLink, baseURL string) LinkResponse {
	resp := LinkResponse{
		ShortURL:     baseURL + "/" + link.ShortCode,
		ShortCode:    link.ShortCode,
		OriginalURL:  link.OriginalURL,
		Clicks:       link.Clicks,
		CreatedAt:    link.CreatedAt,
		ExpiresAt:    link.ExpiresAt,
		ExpiryPolicy: link.ExpiryPolicy,
	}
	if opts := link.CustomOptions; opts != (entities.CustomOptions{}) {
		resp.CustomOptions = &CustomOptionsResponse{
			PasswordProtected: opts.HasPassword(),
			IsPrivate:         opts.IsPrivate,
			RedirectDelay:     opts.RedirectDelay,
		}
	}
	return resp
}

// AdminLinkResponse adds the fields only the admin surface may see.
type AdminLinkResponse struct {
	LinkResponse
	ID          int64   `json:"id"`
	IsActive    bool    `json:"isActive"`
	IsExpired   bool    `json:"isExpired"`
	Description *string `json:"description,omitempty"`
	SourceIP    string  `json:"sourceIp,omitempty"`
	UserAgent   string  `json:"userAgent,omitempty"`
}

func NewAdminLinkResponse(link *entities.ShortLink, baseURL string, now time.Time) AdminLinkResponse {
	return AdminLinkResponse{
		LinkResponse: NewLinkResponse(link, baseURL),
		ID:           link.ID,
		IsActive:     link.IsActive,
		IsExpired:    link.IsExpired(now),
		Description:  link.Description,
		SourceIP:     link.SourceIP,
		UserAgent:    link.UserAgent,
	}
}

type VerifyPasswordResponse struct {
	Success     bool   `json:"success"`
	OriginalURL string `json:"originalUrl"`
}

type CleanupResponse struct {
	Purged int      `json:"purged"`
	Codes  []string `json:"codes"`
}
