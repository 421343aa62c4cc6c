package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"economy-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AchievementService owns per-user counters and the exactly-once unlock.
// The unlock is a compare-and-set UPDATE guarded by "unlocked_at IS NULL",
// so concurrent duplicate events race for a single affected row and only
// the winner credits the reward.
type AchievementService struct {
	DB     *gorm.DB
	Wallet *WalletService
}

func NewAchievementService(db *gorm.DB, wallet *WalletService) *AchievementService {
	return &AchievementService{DB: db, Wallet: wallet}
}

// RecordEvent increments the counter of every count-type achievement keyed
// on the event and returns the definitions unlocked by this call. One
// event can unlock several achievements (e.g. two thresholds on the same
// counter crossed at once).
func (s *AchievementService) RecordEvent(externalUserID, key string, delta int64) ([]models.AchievementDefinition, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("event delta must be positive, got %d", delta)
	}

	var defs []models.AchievementDefinition
	if err := s.DB.
		Where("type = ? AND key = ?", models.AchievementTypeCount, key).
		Order("target ASC").
		Find(&defs).Error; err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, nil
	}

	var unlocked []models.AchievementDefinition
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, def := range defs {
			if err := s.incrementCounter(tx, externalUserID, def.ID, delta); err != nil {
				return err
			}
			won, err := s.tryUnlock(tx, externalUserID, def)
			if err != nil {
				return err
			}
			if won {
				unlocked = append(unlocked, def)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, def := range unlocked {
		log.Printf("[ACHIEVEMENT] unlocked %s for %s (+%d xp, +%d runes)",
			def.Code, externalUserID, def.XPReward, def.RuneReward)
	}
	return unlocked, nil
}

// TriggerSpecial unlocks a boolean/special achievement directly, without a
// counter. Safe to call repeatedly; only the first call awards anything.
func (s *AchievementService) TriggerSpecial(externalUserID, code string) (*models.AchievementDefinition, error) {
	var def models.AchievementDefinition
	if err := s.DB.Where("code = ?", code).First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if def.Type == models.AchievementTypeCount {
		return nil, fmt.Errorf("achievement %s is counter-based, trigger it via RecordEvent", code)
	}

	var won bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.ensureProgressRow(tx, externalUserID, def.ID); err != nil {
			return err
		}
		var txErr error
		won, txErr = s.unlockAndReward(tx, externalUserID, def, tx.Model(&models.UserAchievementProgress{}).
			Where("external_user_id = ? AND achievement_id = ? AND unlocked_at IS NULL", externalUserID, def.ID))
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, nil
	}
	log.Printf("[ACHIEVEMENT] unlocked %s for %s (+%d xp, +%d runes)",
		def.Code, externalUserID, def.XPReward, def.RuneReward)
	return &def, nil
}

// ListProgress returns every definition with the user's counter and unlock
// state joined in.
func (s *AchievementService) ListProgress(externalUserID string) ([]AchievementProgressView, error) {
	var defs []models.AchievementDefinition
	if err := s.DB.Order("code ASC").Find(&defs).Error; err != nil {
		return nil, err
	}

	var rows []models.UserAchievementProgress
	if err := s.DB.Where("external_user_id = ?", externalUserID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byAchievement := make(map[string]models.UserAchievementProgress, len(rows))
	for _, r := range rows {
		byAchievement[r.AchievementID] = r
	}

	views := make([]AchievementProgressView, 0, len(defs))
	for _, def := range defs {
		v := AchievementProgressView{Definition: def}
		if row, ok := byAchievement[def.ID]; ok {
			v.CounterValue = row.CounterValue
			v.UnlockedAt = row.UnlockedAt
		}
		views = append(views, v)
	}
	return views, nil
}

type AchievementProgressView struct {
	Definition   models.AchievementDefinition `json:"definition"`
	CounterValue int64                        `json:"counter_value"`
	UnlockedAt   *time.Time                   `json:"unlocked_at,omitempty"`
}

// incrementCounter upserts the progress row, bumping the counter in place
// on conflict so concurrent events never lose an increment.
func (s *AchievementService) incrementCounter(tx *gorm.DB, externalUserID, achievementID string, delta int64) error {
	row := models.UserAchievementProgress{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		AchievementID:  achievementID,
		CounterValue:   delta,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_user_id"}, {Name: "achievement_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"counter_value": gorm.Expr("counter_value + ?", delta),
		}),
	}).Create(&row).Error
}

func (s *AchievementService) ensureProgressRow(tx *gorm.DB, externalUserID, achievementID string) error {
	row := models.UserAchievementProgress{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		AchievementID:  achievementID,
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// tryUnlock performs the compare-and-set for a count-type achievement.
func (s *AchievementService) tryUnlock(tx *gorm.DB, externalUserID string, def models.AchievementDefinition) (bool, error) {
	guard := tx.Model(&models.UserAchievementProgress{}).
		Where("external_user_id = ? AND achievement_id = ? AND unlocked_at IS NULL AND counter_value >= ?",
			externalUserID, def.ID, def.Target)
	return s.unlockAndReward(tx, externalUserID, def, guard)
}

// unlockAndReward flips unlocked_at through the given guarded update and,
// if this call won the race, credits the rewards in the same transaction.
func (s *AchievementService) unlockAndReward(tx *gorm.DB, externalUserID string, def models.AchievementDefinition, guard *gorm.DB) (bool, error) {
	res := guard.Update("unlocked_at", time.Now())
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	// The reason keys double as a structural guard: even if the CAS were
	// ever bypassed, the reward could still only land once.
	if def.XPReward > 0 {
		if _, err := s.Wallet.creditBalance(tx, externalUserID, "xp", def.XPReward,
			fmt.Sprintf("achievement_%s_xp", def.Code)); err != nil {
			return false, err
		}
	}
	if def.RuneReward > 0 {
		if _, err := s.Wallet.creditBalance(tx, externalUserID, "runes", def.RuneReward,
			fmt.Sprintf("achievement_%s_runes", def.Code)); err != nil {
			return false, err
		}
	}
	return true, nil
}
