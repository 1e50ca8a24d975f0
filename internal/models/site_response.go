package models

import (
	"time"

	"linkgate/internal/entities"
)

type UnlockSiteResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SiteStatusResponse is the public view of the site mode
type SiteStatusResponse struct {
	Mode                entities.SiteMode `json:"mode"`
	IsPrivate           bool              `json:"isPrivate"`
	IsMaintenanceMode   bool              `json:"isMaintenanceMode"`
	MaintenanceMessage  string            `json:"maintenanceMessage,omitempty"`
	EstimatedCompletion *time.Time        `json:"estimatedCompletion,omitempty"`
}

func NewSiteStatusResponse(s entities.SiteSettings) SiteStatusResponse {
	resp := SiteStatusResponse{
		Mode:              s.Mode(),
		IsPrivate:         s.IsPrivate,
		IsMaintenanceMode: s.IsMaintenanceMode,
	}
	if s.IsMaintenanceMode {
		resp.MaintenanceMessage = s.MaintenanceMessage
		resp.EstimatedCompletion = s.EstimatedCompletion
	}
	return resp
}

// SettingsResponse is the admin view of the site settings. The password
// hash stays server-side.
type SettingsResponse struct {
	Mode                entities.SiteMode `json:"mode"`
	IsPrivate           bool              `json:"isPrivate"`
	IsMaintenanceMode   bool              `json:"isMaintenanceMode"`
	MaintenanceMessage  string            `json:"maintenanceMessage"`
	EstimatedCompletion *time.Time        `json:"estimatedCompletion,omitempty"`
	HasSitePassword     bool              `json:"hasSitePassword"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

func NewSettingsResponse(s entities.SiteSettings) SettingsResponse {
	return SettingsResponse{
		Mode:                s.Mode(),
		IsPrivate:           s.IsPrivate,
		IsMaintenanceMode:   s.IsMaintenanceMode,
		MaintenanceMessage:  s.MaintenanceMessage,
		EstimatedCompletion: s.EstimatedCompletion,
		HasSitePassword:     s.SitePasswordHash != "",
		UpdatedAt:           s.UpdatedAt,
	}
}
