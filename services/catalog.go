package services

import (
	"log"

	"economy-engine/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncStaticCatalogs pushes the in-code catalogs (achievements, shop items,
// digital products) into the database at boot. Existing rows keep their ids
// so user progress and inventory references stay stable across deploys.
func SyncStaticCatalogs(db *gorm.DB) error {
	for _, def := range models.AchievementCatalog {
		def.ID = uuid.NewString()
		res := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "description", "type", "key", "target", "xp_reward", "rune_reward",
			}),
		}).Create(&def)
		if res.Error != nil {
			return res.Error
		}
	}

	for _, item := range models.ShopCatalog {
		item.ID = uuid.NewString()
		item.Slug = slug.Make(item.Name)
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "price", "type", "value", "category"}),
		}).Create(&item)
		if res.Error != nil {
			return res.Error
		}
	}

	for _, product := range models.ProductCatalog {
		product.ID = uuid.NewString()
		product.Slug = slug.Make(product.Name)
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "price", "currency", "is_published"}),
		}).Create(&product)
		if res.Error != nil {
			return res.Error
		}
	}

	log.Printf("[CATALOG] synced %d achievements, %d shop items, %d products",
		len(models.AchievementCatalog), len(models.ShopCatalog), len(models.ProductCatalog))
	return nil
}
