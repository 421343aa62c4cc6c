package services

import (
	"economy-engine/models"

	"gorm.io/gorm"
)

// LevelFor resolves accumulated XP to a level: the highest threshold whose
// MinXP does not exceed xp. The table starts at 0, so every input resolves.
func LevelFor(xp int64) models.LevelThreshold {
	selected := models.LevelThresholds[0]
	for _, t := range models.LevelThresholds {
		if xp >= t.MinXP {
			selected = t
		} else {
			break
		}
	}
	return selected
}

// RankFor resolves accumulated XP to a rank, same lookup as LevelFor over
// the rank table.
func RankFor(xp int64) models.RankThreshold {
	selected := models.RankThresholds[0]
	for _, t := range models.RankThresholds {
		if xp >= t.MinXP {
			selected = t
		} else {
			break
		}
	}
	return selected
}

// XPToNextLevel returns how much XP is missing until the next level, or 0
// at the top of the table.
func XPToNextLevel(xp int64) int64 {
	for _, t := range models.LevelThresholds {
		if t.MinXP > xp {
			return t.MinXP - xp
		}
	}
	return 0
}

// ProgressionView is the read-side assembly of wallet balances and the
// derived level/rank for a user profile.
type ProgressionView struct {
	ExternalUserID string `json:"external_user_id"`
	XP             int64  `json:"xp"`
	Runes          int64  `json:"runes"`
	Points         int64  `json:"points"`

	Level     int    `json:"level"`
	LevelName string `json:"level_name"`
	NextLevel int64  `json:"xp_to_next_level"`

	Rank            int    `json:"rank"`
	RankName        string `json:"rank_name"`
	RankDescription string `json:"rank_description"`
}

// ProgressionService exposes the derived-progression read queries. Levels
// and ranks are never persisted; they're pure functions of the XP balance.
type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// Overview computes the progression view for a user.
func (s *ProgressionService) Overview(externalUserID string) (*ProgressionView, error) {
	var user models.User
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	level := LevelFor(user.XP)
	rank := RankFor(user.XP)

	return &ProgressionView{
		ExternalUserID:  user.ExternalUserID,
		XP:              user.XP,
		Runes:           user.Runes,
		Points:          user.Points,
		Level:           level.Level,
		LevelName:       level.Name,
		NextLevel:       XPToNextLevel(user.XP),
		Rank:            rank.Rank,
		RankName:        rank.Name,
		RankDescription: rank.Description,
	}, nil
}
