package models

import "time"

// AppliedReward records that a one-shot reward reason has already been
// applied to a user (e.g. "view_project_<id>"). The composite unique index
// is what makes wallet credits idempotent per reason key: the insert either
// lands or conflicts, never both.
type AppliedReward struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:ux_applied_user_reason,priority:1" json:"external_user_id"`
	ReasonKey      string    `gorm:"size:255;not null;uniqueIndex:ux_applied_user_reason,priority:2" json:"reason_key"`
	Currency       string    `gorm:"size:16;not null" json:"currency"` // "xp" or "runes"
	Amount         int64     `gorm:"not null" json:"amount"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
