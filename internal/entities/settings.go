package entities

import "time"

// SiteMode is the site-wide gate evaluated before any redirect.
type SiteMode string

const (
	SiteModeNormal      SiteMode = "normal"
	SiteModePrivate     SiteMode = "private"
	SiteModeMaintenance SiteMode = "maintenance"
)

// SiteSettings is the single site-wide settings record.
// Private and maintenance are toggled independently; maintenance wins.
type SiteSettings struct {
	IsPrivate           bool       `json:"isPrivate"`
	IsMaintenanceMode   bool       `json:"isMaintenanceMode"`
	MaintenanceMessage  string     `json:"maintenanceMessage,omitempty"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	SitePasswordHash    string     `json:"sitePasswordHash,omitempty"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Mode returns the effective mode in evaluation order.
func (s SiteSettings) Mode() SiteMode {
	switch {
	case s.IsMaintenanceMode:
		return SiteModeMaintenance
	case s.IsPrivate:
		return SiteModePrivate
	default:
		return SiteModeNormal
	}
}
