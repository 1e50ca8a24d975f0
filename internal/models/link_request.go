package models

// ShortenRequest represents the request body for creating a short link
type ShortenRequest struct {
	URL           string                `json:"url" binding:"required,max=2048"`
	ExpiresIn     string                `json:"expiresIn,omitempty" binding:"omitempty,expiry"` // 1d, 7d, 30d, 365d or never
	CustomOptions *CustomOptionsRequest `json:"customOptions,omitempty"`
}

type CustomOptionsRequest struct {
	Password      string `json:"password,omitempty" binding:"omitempty,max=128"`
	IsPrivate     bool   `json:"isPrivate,omitempty"`
	RedirectDelay int    `json:"redirectDelay,omitempty" binding:"min=0,max=60"`
}

// VerifyPasswordRequest represents the request body for unlocking a protected link
type VerifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type UpdateDescriptionRequest struct {
	Description string `json:"description" binding:"max=500"`
}
