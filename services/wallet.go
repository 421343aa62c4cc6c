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

// WalletService owns the three per-user balances (XP, runes, points).
// Every mutation runs in a single transaction scoped to the user row;
// credits with a reason key are idempotent via the applied_rewards table.
type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// CreditResult reports the balance after a credit and how much of the
// requested amount was actually applied (0 on an idempotent repeat).
type CreditResult struct {
	NewTotal      int64 `json:"new_total"`
	AmountApplied int64 `json:"amount_applied"`
}

// EnsureUser creates the local user row if it doesn't exist yet (idempotent).
func (s *WalletService) EnsureUser(externalUserID, username string) (*models.User, error) {
	user := models.User{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Username:       username,
	}
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
	if res.Error != nil {
		return nil, res.Error
	}
	var existing models.User
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// GetUser returns the user row for an external ID.
func (s *WalletService) GetUser(externalUserID string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreditXP adds XP to a user. When reasonKey is non-empty the credit is
// applied at most once per (user, reasonKey): a repeat returns the current
// total with AmountApplied = 0.
func (s *WalletService) CreditXP(externalUserID string, amount int64, reasonKey string) (*CreditResult, error) {
	var res *CreditResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		res, txErr = s.creditBalance(tx, externalUserID, "xp", amount, reasonKey)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if res.AmountApplied > 0 {
		log.Printf("[WALLET] credited %d xp to %s (reason: %s)", amount, externalUserID, reasonKey)
	}
	return res, nil
}

// CreditRunes adds runes, with the same per-reason-key idempotency as CreditXP.
func (s *WalletService) CreditRunes(externalUserID string, amount int64, reasonKey string) (*CreditResult, error) {
	var res *CreditResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		res, txErr = s.creditBalance(tx, externalUserID, "runes", amount, reasonKey)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DebitRunes removes runes. Fails with ErrInsufficientFunds if the balance
// would go negative; the balance is never written below zero.
func (s *WalletService) DebitRunes(externalUserID string, amount int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.debitBalance(tx, externalUserID, "runes", amount)
	})
}

// SpendPoints debits the legacy points balance with the same guarantees.
func (s *WalletService) SpendPoints(externalUserID string, amount int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.debitBalance(tx, externalUserID, "points", amount)
	})
}

// creditBalance is the tx-scoped credit shared by the exported methods and
// the achievement evaluator (which credits rewards inside its own tx).
// column must be one of the balance columns on users.
func (s *WalletService) creditBalance(tx *gorm.DB, externalUserID, column string, amount int64, reasonKey string) (*CreditResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	if reasonKey != "" {
		applied := models.AppliedReward{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			ReasonKey:      reasonKey,
			Currency:       column,
			Amount:         amount,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&applied)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Reason already applied, report the balance as-is.
			total, err := s.readBalance(tx, externalUserID, column)
			if err != nil {
				return nil, err
			}
			return &CreditResult{NewTotal: total, AmountApplied: 0}, nil
		}
	}

	res := tx.Model(&models.User{}).
		Where("external_user_id = ?", externalUserID).
		Update(column, gorm.Expr(column+" + ?", amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	total, err := s.readBalance(tx, externalUserID, column)
	if err != nil {
		return nil, err
	}
	return &CreditResult{NewTotal: total, AmountApplied: amount}, nil
}

// debitBalance decrements a balance column, guarded so the row is only
// touched when the balance covers the amount. RowsAffected == 0 on an
// existing user means the funds weren't there.
func (s *WalletService) debitBalance(tx *gorm.DB, externalUserID, column string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	res := tx.Model(&models.User{}).
		Where("external_user_id = ? AND "+column+" >= ?", externalUserID, amount).
		Update(column, gorm.Expr(column+" - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("external_user_id = ?", externalUserID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrInsufficientFunds
	}
	return nil
}

func (s *WalletService) readBalance(tx *gorm.DB, externalUserID, column string) (int64, error) {
	var total int64
	err := tx.Model(&models.User{}).
		Where("external_user_id = ?", externalUserID).
		Pluck(column, &total).Error
	return total, err
}
