package entities

import "time"

// ClickEvent is a single successful redirect. It carries derived dimensions
// only; no raw IP or user agent is kept.
type ClickEvent struct {
	ID             string    `json:"id"`
	ShortCode      string    `json:"shortCode"`
	Timestamp      time.Time `json:"timestamp"`
	ReferrerDomain string    `json:"referrerDomain"`
	DeviceClass    string    `json:"deviceClass"`
	Country        string    `json:"country"`
}

// ClickDimension names a ClickEvent column that can be broken down.
type ClickDimension string

const (
	DimensionReferrer ClickDimension = "referrer_domain"
	DimensionDevice   ClickDimension = "device_class"
	DimensionCountry  ClickDimension = "country"
)

// Value returns the dimension value of e.
func (d ClickDimension) Value(e ClickEvent) string {
	switch d {
	case DimensionReferrer:
		return e.ReferrerDomain
	case DimensionDevice:
		return e.DeviceClass
	case DimensionCountry:
		return e.Country
	}
	return ""
}

// LinkClicks is the per-link click total used for top-N rollups.
type LinkClicks struct {
	ShortCode   string
	OriginalURL string
	Clicks      int64
	IsPrivate   bool
	IsProtected bool // link password set
}

// Hidden reports whether the link must stay out of public rollups.
func (lc LinkClicks) Hidden() bool {
	return lc.IsPrivate || lc.IsProtected
}
