package models

import "time"

// Link maps a short code to a destination URL.
// Links are hard deleted so that a removed code can be reserved again;
// a soft-delete column would keep the unique index entry alive.
type Link struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Code        string     `gorm:"uniqueIndex;not null" json:"code"`
	Destination string     `gorm:"not null" json:"destination"`
	Title       string     `json:"title"`
	Active      bool       `gorm:"not null;default:true" json:"active"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedByID *uint      `json:"created_by_id,omitempty"`
	Clicks      int64      `gorm:"not null;default:0" json:"clicks"`
}

// IsExpired reports whether the link is past its expiry at the given instant.
// A link without an expiry never expires.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
