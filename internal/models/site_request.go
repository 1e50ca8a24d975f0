package models

import "time"

// UnlockSiteRequest represents the request body for unlocking a private site
type UnlockSiteRequest struct {
	Password string `json:"password" binding:"required"`
}

// UpdateSettingsRequest is a partial update; nil fields are left unchanged.
type UpdateSettingsRequest struct {
	IsPrivate           *bool      `json:"isPrivate,omitempty"`
	IsMaintenanceMode   *bool      `json:"isMaintenanceMode,omitempty"`
	MaintenanceMessage  *string    `json:"maintenanceMessage,omitempty" binding:"omitempty,max=500"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	// ClearEstimatedCompletion removes a previously set estimate.
	ClearEstimatedCompletion bool `json:"clearEstimatedCompletion,omitempty"`
	// SitePassword sets the private-mode password; an empty string removes it.
	SitePassword *string `json:"sitePassword,omitempty" binding:"omitempty,max=128"`
}
