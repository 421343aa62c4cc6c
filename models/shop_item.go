package models

import "time"

// Item slot types
const (
	ItemTypeFrame      = "frame"
	ItemTypeBackground = "background"
	ItemTypeOther      = "other"
)

// Sentinel item values with special equip behaviour
const (
	ItemValueCustomImage = "custom-image" // resolves to the user's uploaded background URL
	ItemValueCustomColor = "custom-color" // the background slot rendered as a flat profile color
)

// ShopItem is a static catalog entry. Price changes never retroact: an
// inventory record only references the item, the paid price is whatever
// was debited at purchase time.
type ShopItem struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Slug     string `gorm:"uniqueIndex;not null" json:"slug"`
	Name     string `gorm:"not null" json:"name"`
	Price    int64  `gorm:"not null" json:"price"` // in runes
	Type     string `gorm:"size:16;not null;index" json:"type"`
	Value    string `gorm:"not null" json:"value"` // equip payload: style token or sentinel
	Category string `gorm:"size:32;index" json:"category"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserInventory is one acquisition of a shop item by a user. Created on
// purchase or grant, never mutated, never deleted. The unique index makes
// grants idempotent and concurrent purchases single-winner.
type UserInventory struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:ux_inventory_user_item,priority:1" json:"external_user_id"`
	ShopItemID     string    `gorm:"not null;uniqueIndex:ux_inventory_user_item,priority:2" json:"shop_item_id"`
	AcquiredAt     time.Time `gorm:"autoCreateTime" json:"acquired_at"`
}

// ShopCatalog is the built-in item set, synced to the DB at boot
// (same pattern as a static trigger table: code in git, rows in the DB).
var ShopCatalog = []ShopItem{
	{Name: "Golden Frame", Price: 150, Type: ItemTypeFrame, Value: "frame-gold", Category: "frames"},
	{Name: "Neon Frame", Price: 100, Type: ItemTypeFrame, Value: "frame-neon", Category: "frames"},
	{Name: "Pixel Frame", Price: 80, Type: ItemTypeFrame, Value: "frame-pixel", Category: "frames"},
	{Name: "Aurora Background", Price: 200, Type: ItemTypeBackground, Value: "bg-aurora", Category: "backgrounds"},
	{Name: "Circuit Background", Price: 180, Type: ItemTypeBackground, Value: "bg-circuit", Category: "backgrounds"},
	{Name: "Custom Image Background", Price: 500, Type: ItemTypeBackground, Value: ItemValueCustomImage, Category: "backgrounds"},
	{Name: "Custom Profile Color", Price: 250, Type: ItemTypeBackground, Value: ItemValueCustomColor, Category: "backgrounds"},
	{Name: "Animated Cursor", Price: 60, Type: ItemTypeOther, Value: "cursor-comet", Category: "extras"},
}
