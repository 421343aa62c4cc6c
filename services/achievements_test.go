package services

import (
	"sync"
	"testing"

	"economy-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdCrossingUnlocksExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	achievements := NewAchievementService(db, wallet)
	userID := createTestUser(t, db, 0, 0, 0)

	// observer: projectViews target 10, 100 XP / 30 runes.
	for i := 0; i < 9; i++ {
		unlocked, err := achievements.RecordEvent(userID, "projectViews", 1)
		require.NoError(t, err)
		assert.Empty(t, unlocked)
	}

	var def models.AchievementDefinition
	require.NoError(t, db.Where("code = ?", "observer").First(&def).Error)
	var progress models.UserAchievementProgress
	require.NoError(t, db.Where("external_user_id = ? AND achievement_id = ?", userID, def.ID).First(&progress).Error)
	assert.Equal(t, int64(9), progress.CounterValue)
	assert.Nil(t, progress.UnlockedAt)

	// The 10th event crosses the threshold.
	unlocked, err := achievements.RecordEvent(userID, "projectViews", 1)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "observer", unlocked[0].Code)

	user, err := wallet.GetUser(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.XP)
	assert.Equal(t, int64(30), user.Runes)

	// Further events keep counting but never re-unlock or re-credit.
	for i := 0; i < 5; i++ {
		unlocked, err := achievements.RecordEvent(userID, "projectViews", 1)
		require.NoError(t, err)
		assert.Empty(t, unlocked)
	}
	user, err = wallet.GetUser(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.XP)
	assert.Equal(t, int64(30), user.Runes)

	require.NoError(t, db.Where("external_user_id = ? AND achievement_id = ?", userID, def.ID).First(&progress).Error)
	assert.Equal(t, int64(15), progress.CounterValue)
	require.NotNil(t, progress.UnlockedAt)
}

func TestOneEventCanUnlockSeveralAchievements(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	achievements := NewAchievementService(db, wallet)
	userID := createTestUser(t, db, 0, 0, 0)

	// first_purchase (target 1) and collector (target 5) share the
	// shopPurchases key; a delta of 5 crosses both at once.
	unlocked, err := achievements.RecordEvent(userID, "shopPurchases", 5)
	require.NoError(t, err)
	require.Len(t, unlocked, 2)

	codes := []string{unlocked[0].Code, unlocked[1].Code}
	assert.Contains(t, codes, "first_purchase")
	assert.Contains(t, codes, "collector")

	user, err := wallet.GetUser(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(50+200), user.XP)
	assert.Equal(t, int64(10+50), user.Runes)
}

func TestConcurrentDuplicateEventsUnlockOnce(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	achievements := NewAchievementService(db, wallet)
	userID := createTestUser(t, db, 0, 0, 0)

	// One short of the observer threshold, then two duplicate events race.
	for i := 0; i < 9; i++ {
		_, err := achievements.RecordEvent(userID, "projectViews", 1)
		require.NoError(t, err)
	}

	results := make(chan []models.AchievementDefinition, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlocked, err := achievements.RecordEvent(userID, "projectViews", 1)
			assert.NoError(t, err)
			results <- unlocked
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for unlocked := range results {
		total += len(unlocked)
	}
	assert.Equal(t, 1, total, "both calls cross the threshold but only one unlocks")

	// Reward credited exactly once, counter kept both increments.
	user, err := wallet.GetUser(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.XP)
	assert.Equal(t, int64(30), user.Runes)

	var def models.AchievementDefinition
	require.NoError(t, db.Where("code = ?", "observer").First(&def).Error)
	var progress models.UserAchievementProgress
	require.NoError(t, db.Where("external_user_id = ? AND achievement_id = ?", userID, def.ID).First(&progress).Error)
	assert.Equal(t, int64(11), progress.CounterValue)
	require.NotNil(t, progress.UnlockedAt)
}

func TestRecordEventUnknownKeyIsANoop(t *testing.T) {
	db := newTestDB(t)
	achievements := NewAchievementService(db, NewWalletService(db))
	userID := createTestUser(t, db, 0, 0, 0)

	unlocked, err := achievements.RecordEvent(userID, "somethingElse", 1)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	var count int64
	require.NoError(t, db.Model(&models.UserAchievementProgress{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTriggerSpecialOnlyAwardsOnce(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	achievements := NewAchievementService(db, wallet)
	userID := createTestUser(t, db, 0, 0, 0)

	def, err := achievements.TriggerSpecial(userID, "early_adopter")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "early_adopter", def.Code)

	// Replay: no second unlock, no second reward.
	again, err := achievements.TriggerSpecial(userID, "early_adopter")
	require.NoError(t, err)
	assert.Nil(t, again)

	user, err := wallet.GetUser(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), user.XP)
	assert.Equal(t, int64(150), user.Runes)
}

func TestTriggerSpecialRejectsCountType(t *testing.T) {
	db := newTestDB(t)
	achievements := NewAchievementService(db, NewWalletService(db))
	userID := createTestUser(t, db, 0, 0, 0)

	_, err := achievements.TriggerSpecial(userID, "observer")
	assert.Error(t, err)

	_, err = achievements.TriggerSpecial(userID, "no_such_code")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProgressJoinsCountersAndUnlocks(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	achievements := NewAchievementService(db, wallet)
	userID := createTestUser(t, db, 0, 0, 0)

	_, err := achievements.RecordEvent(userID, "projectViews", 3)
	require.NoError(t, err)

	views, err := achievements.ListProgress(userID)
	require.NoError(t, err)
	assert.Len(t, views, len(models.AchievementCatalog))

	for _, v := range views {
		if v.Definition.Code == "observer" {
			assert.Equal(t, int64(3), v.CounterValue)
			assert.Nil(t, v.UnlockedAt)
		}
		if v.Definition.Code == "supporter" {
			assert.Zero(t, v.CounterValue)
		}
	}
}
