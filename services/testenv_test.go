package services

import (
	"testing"

	"economy-engine/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB spins up an isolated in-memory database with the full schema
// and the static catalogs loaded. MaxOpenConns(1) keeps the pool on a
// single in-memory SQLite instance.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AppliedReward{},
		&models.ShopItem{},
		&models.UserInventory{},
		&models.AchievementDefinition{},
		&models.UserAchievementProgress{},
		&models.DigitalProduct{},
		&models.Order{},
		&models.DigitalProductOwnership{},
	))
	require.NoError(t, SyncStaticCatalogs(db))
	return db
}

// createTestUser inserts a user row with the given balances and returns
// its external id.
func createTestUser(t *testing.T, db *gorm.DB, xp, runes, points int64) string {
	t.Helper()

	externalID := uuid.NewString()
	user := models.User{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       "tester-" + externalID[:8],
		XP:             xp,
		Runes:          runes,
		Points:         points,
	}
	require.NoError(t, db.Create(&user).Error)
	return externalID
}

func itemBySlug(t *testing.T, db *gorm.DB, slug string) models.ShopItem {
	t.Helper()

	var item models.ShopItem
	require.NoError(t, db.Where("slug = ?", slug).First(&item).Error)
	return item
}

func productBySlug(t *testing.T, db *gorm.DB, slug string) models.DigitalProduct {
	t.Helper()

	var product models.DigitalProduct
	require.NoError(t, db.Where("slug = ?", slug).First(&product).Error)
	return product
}
