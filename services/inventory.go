package services

import (
	"errors"
	"fmt"
	"log"

	"economy-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryService owns item acquisition and the equip slots. Purchases
// debit runes and grant ownership in one transaction; equips enforce the
// per-slot rules and the background/profile-color exclusivity.
type InventoryService struct {
	DB     *gorm.DB
	Wallet *WalletService
}

func NewInventoryService(db *gorm.DB, wallet *WalletService) *InventoryService {
	return &InventoryService{DB: db, Wallet: wallet}
}

// GrantOwnership inserts the inventory record if absent and returns the
// existing one on conflict. No error on a repeat grant.
func (s *InventoryService) GrantOwnership(externalUserID, shopItemID string) (*models.UserInventory, error) {
	row := models.UserInventory{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		ShopItemID:     shopItemID,
	}
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	var existing models.UserInventory
	if err := s.DB.
		Where("external_user_id = ? AND shop_item_id = ?", externalUserID, shopItemID).
		First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// Purchase debits the item's price in runes and grants ownership, all in
// one transaction. An owned item is rejected before any debit; a failed
// debit leaves no inventory row behind.
func (s *InventoryService) Purchase(externalUserID, shopItemID string) (*models.UserInventory, error) {
	var granted models.UserInventory
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var item models.ShopItem
		if err := tx.Where("id = ?", shopItemID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var owned int64
		if err := tx.Model(&models.UserInventory{}).
			Where("external_user_id = ? AND shop_item_id = ?", externalUserID, shopItemID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned > 0 {
			return ErrAlreadyOwned
		}

		if err := s.Wallet.debitBalance(tx, externalUserID, "runes", item.Price); err != nil {
			return err
		}

		granted = models.UserInventory{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			ShopItemID:     shopItemID,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&granted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent purchase won the insert; roll the debit back.
			return ErrAlreadyOwned
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[SHOP] %s purchased item %s", externalUserID, shopItemID)
	return &granted, nil
}

// ListInventory returns all items a user owns, joined with the catalog.
func (s *InventoryService) ListInventory(externalUserID string) ([]OwnedItemView, error) {
	var rows []models.UserInventory
	if err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("acquired_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []OwnedItemView{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ShopItemID)
	}
	var items []models.ShopItem
	if err := s.DB.Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.ShopItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	views := make([]OwnedItemView, 0, len(rows))
	for _, r := range rows {
		views = append(views, OwnedItemView{Item: byID[r.ShopItemID], AcquiredAt: r.AcquiredAt.String()})
	}
	return views, nil
}

type OwnedItemView struct {
	Item       models.ShopItem `json:"item"`
	AcquiredAt string          `json:"acquired_at"`
}

// ToggleEquip equips an owned item, or unequips it if it's currently
// active. Frames are a plain single-slot toggle. Backgrounds additionally
// maintain the rule that a background and a profile color never coexist,
// and the "custom-image" sentinel resolves to the user's uploaded URL.
func (s *InventoryService) ToggleEquip(externalUserID, shopItemID string) (*models.User, error) {
	var updated models.User
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var item models.ShopItem
		if err := tx.Where("id = ?", shopItemID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var owned int64
		if err := tx.Model(&models.UserInventory{}).
			Where("external_user_id = ? AND shop_item_id = ?", externalUserID, shopItemID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned == 0 {
			return ErrUnauthorized
		}

		var user models.User
		if err := tx.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
			return err
		}

		switch item.Type {
		case models.ItemTypeFrame:
			if user.EquippedFrame != nil && *user.EquippedFrame == item.Value {
				user.EquippedFrame = nil
			} else {
				value := item.Value
				user.EquippedFrame = &value
			}

		case models.ItemTypeBackground:
			if err := toggleBackground(&user, item); err != nil {
				return err
			}

		default:
			return fmt.Errorf("item %s (%s) is not equippable", item.Slug, item.Type)
		}

		if err := tx.Model(&models.User{}).
			Where("external_user_id = ?", externalUserID).
			Select("equipped_frame", "equipped_background", "profile_color").
			Updates(map[string]interface{}{
				"equipped_frame":      user.EquippedFrame,
				"equipped_background": user.EquippedBackground,
				"profile_color":       user.ProfileColor,
			}).Error; err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// toggleBackground applies the background slot rules in place.
func toggleBackground(user *models.User, item models.ShopItem) error {
	resolved := item.Value
	if item.Value == models.ItemValueCustomImage {
		if user.CustomBackgroundURL == nil || *user.CustomBackgroundURL == "" {
			return fmt.Errorf("no custom background uploaded: %w", ErrNotFound)
		}
		resolved = *user.CustomBackgroundURL
	}

	if user.EquippedBackground != nil && *user.EquippedBackground == resolved {
		// Unequip. Dropping a non-color background also drops the profile
		// color; the color sentinel leaves it for the color picker to own.
		user.EquippedBackground = nil
		if item.Value != models.ItemValueCustomColor {
			user.ProfileColor = nil
		}
		return nil
	}

	user.EquippedBackground = &resolved
	// A background and a profile color never coexist.
	user.ProfileColor = nil
	return nil
}

// SetProfileColor sets the flat profile color and clears any equipped
// background: the two are alternate renderings of the same slot.
func (s *InventoryService) SetProfileColor(externalUserID, color string) (*models.User, error) {
	var updated *models.User
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("external_user_id = ?", externalUserID).
			Select("profile_color", "equipped_background").
			Updates(map[string]interface{}{
				"profile_color":       color,
				"equipped_background": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var user models.User
		if err := tx.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
			return err
		}
		updated = &user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetCustomBackgroundURL stores the uploaded image URL that backs the
// "custom-image" item. It does not equip anything by itself.
func (s *InventoryService) SetCustomBackgroundURL(externalUserID, url string) error {
	res := s.DB.Model(&models.User{}).
		Where("external_user_id = ?", externalUserID).
		Update("custom_background_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
