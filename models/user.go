package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a local snapshot of identity data plus everything the economy
// engine owns for that user: wallet balances and cosmetic equip state.
// Identity fields are populated from the profile service; balances and
// equip slots are mutated only by the wallet and inventory services.
type User struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // profile service UUID
	Username       string `gorm:"index;not null" json:"username"`
	Email          string `json:"email,omitempty"`

	// Wallet balances. XP only ever grows; runes and points are spendable.
	// None of the three is ever written below zero.
	XP     int64 `gorm:"not null;default:0" json:"xp"`
	Runes  int64 `gorm:"not null;default:0" json:"runes"`
	Points int64 `gorm:"not null;default:0" json:"points"`

	// Equip slots. EquippedBackground and ProfileColor are mutually
	// exclusive: setting one clears the other.
	EquippedFrame       *string `json:"equipped_frame,omitempty"`
	EquippedBackground  *string `json:"equipped_background,omitempty"`
	ProfileColor        *string `json:"profile_color,omitempty"`
	CustomBackgroundURL *string `json:"custom_background_url,omitempty"` // uploaded image behind the "custom-image" item

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
