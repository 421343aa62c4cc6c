package models

import "time"

// OrderStatus is the order state machine. PENDING is the only non-terminal
// state; SUCCESS, FAILED and CANCELLED are final.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusSuccess   OrderStatus = "SUCCESS"
	OrderStatusFailed    OrderStatus = "FAILED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusSuccess || s == OrderStatusFailed || s == OrderStatusCancelled
}

// Supported payment providers
const (
	ProviderPayPal = "paypal"
	ProviderMollie = "mollie"
)

// DigitalProduct is a catalog entry for purchasable non-cosmetic goods.
// Orders snapshot price and currency at creation, so later edits here do
// not affect in-flight checkouts.
type DigitalProduct struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Price       int64  `gorm:"not null" json:"price"` // minor units (cents)
	Currency    string `gorm:"size:8;not null" json:"currency"`
	IsPublished bool   `gorm:"default:false;index" json:"is_published"`

	Timestamps
}

// Order is one checkout attempt. Created PENDING before the gateway is
// called, so a gateway timeout still leaves a recoverable record.
type Order struct {
	ID             string      `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string      `gorm:"not null;index" json:"external_user_id"`
	ProductID      string      `gorm:"not null;index" json:"product_id"`
	Amount         int64       `gorm:"not null" json:"amount"`   // snapshot, minor units
	Currency       string      `gorm:"size:8;not null" json:"currency"` // snapshot
	Status         OrderStatus `gorm:"size:16;not null;index;default:'PENDING'" json:"status"`

	PaymentProvider string `gorm:"size:32" json:"payment_provider"`
	PaymentID       string `gorm:"size:128;index" json:"payment_id"` // opaque provider transaction id
	CheckoutURL     string `gorm:"type:text" json:"checkout_url"`

	Timestamps
}

// DigitalProductOwnership is created exactly once per user×product,
// atomically with the owning order's transition to SUCCESS.
type DigitalProductOwnership struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:ux_ownership_user_product,priority:1" json:"external_user_id"`
	ProductID      string    `gorm:"not null;uniqueIndex:ux_ownership_user_product,priority:2" json:"product_id"`
	OrderID        string    `gorm:"not null;index" json:"order_id"`
	GrantedAt      time.Time `gorm:"autoCreateTime" json:"granted_at"`
}

// ProductCatalog is the built-in digital product set, synced at boot.
var ProductCatalog = []DigitalProduct{
	{Name: "Pro Membership (Lifetime)", Description: "Unlocks the pro badge and early feature access", Price: 1999, Currency: "EUR", IsPublished: true},
	{Name: "Supporter Pack", Description: "Support the platform, get the supporter flair", Price: 499, Currency: "EUR", IsPublished: true},
	{Name: "Design Asset Bundle", Description: "Downloadable asset pack", Price: 1499, Currency: "USD", IsPublished: true},
}
