package models

import "time"

// AchievementType discriminates how an achievement is earned.
type AchievementType string

const (
	// AchievementTypeCount unlocks when a named counter reaches a target.
	AchievementTypeCount AchievementType = "count"
	// AchievementTypeBoolean unlocks the first time its trigger fires.
	AchievementTypeBoolean AchievementType = "boolean"
	// AchievementTypeSpecial is awarded manually or by bespoke logic.
	AchievementTypeSpecial AchievementType = "special"
)

// AchievementDefinition: static config, synced from AchievementCatalog at boot.
type AchievementDefinition struct {
	ID          string          `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string          `gorm:"uniqueIndex;not null" json:"code"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Type        AchievementType `gorm:"size:16;not null" json:"type"`
	Key         string          `gorm:"index" json:"key"`    // counter name, count type only
	Target      int64           `json:"target"`              // threshold, count type only
	XPReward    int64           `json:"xp_reward"`
	RuneReward  int64           `json:"rune_reward"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// UserAchievementProgress tracks a single user against a single definition.
// UnlockedAt is set exactly once, by a compare-and-set update; the counter
// never decreases.
type UserAchievementProgress struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string     `gorm:"not null;uniqueIndex:ux_progress_user_achievement,priority:1" json:"external_user_id"`
	AchievementID  string     `gorm:"not null;uniqueIndex:ux_progress_user_achievement,priority:2" json:"achievement_id"`
	CounterValue   int64      `gorm:"not null;default:0" json:"counter_value"`
	UnlockedAt     *time.Time `json:"unlocked_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AchievementCatalog is the built-in achievement set.
var AchievementCatalog = []AchievementDefinition{
	{
		Code: "observer", Name: "Observer",
		Description: "Viewed 10 projects",
		Type:        AchievementTypeCount, Key: "projectViews", Target: 10,
		XPReward: 100, RuneReward: 30,
	},
	{
		Code: "curious", Name: "Curious Mind",
		Description: "Viewed 50 projects",
		Type:        AchievementTypeCount, Key: "projectViews", Target: 50,
		XPReward: 300, RuneReward: 75,
	},
	{
		Code: "collector", Name: "Collector",
		Description: "Bought 5 shop items",
		Type:        AchievementTypeCount, Key: "shopPurchases", Target: 5,
		XPReward: 200, RuneReward: 50,
	},
	{
		Code: "first_purchase", Name: "First Purchase",
		Description: "Bought your first shop item",
		Type:        AchievementTypeCount, Key: "shopPurchases", Target: 1,
		XPReward: 50, RuneReward: 10,
	},
	{
		Code: "supporter", Name: "Supporter",
		Description: "Completed a checkout",
		Type:        AchievementTypeBoolean,
		XPReward:    250, RuneReward: 100,
	},
	{
		Code: "early_adopter", Name: "Early Adopter",
		Description: "Joined during the beta",
		Type:        AchievementTypeSpecial,
		XPReward:    500, RuneReward: 150,
	},
}
