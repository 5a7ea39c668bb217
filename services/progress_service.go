package services

import (
	"errors"
	"time"

	"referral-flow-bot/models"

	"gorm.io/gorm"
)

// ProgressService updates fulfillment milestones through a fixed set of
// typed setters. Every change triggers a bonus recalculation, keeping the
// FinancialData rollup consistent with the flags.
type ProgressService struct {
	DB   *gorm.DB
	Calc *BonusCalculator
}

func NewProgressService(db *gorm.DB, calc *BonusCalculator) *ProgressService {
	return &ProgressService{DB: db, Calc: calc}
}

func (s *ProgressService) Get(userID int64) (*models.ReferralProgress, error) {
	var p models.ReferralProgress
	if err := s.DB.First(&p, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *ProgressService) SetCardReceived(userID int64, when time.Time) error {
	return s.set(userID, map[string]interface{}{
		"card_received":      true,
		"card_received_date": when,
	})
}

func (s *ProgressService) SetCardActivated(userID int64, when time.Time) error {
	return s.set(userID, map[string]interface{}{
		"card_activated":      true,
		"card_activated_date": when,
	})
}

func (s *ProgressService) SetPurchaseMade(userID int64, when time.Time, amount *float64) error {
	updates := map[string]interface{}{
		"purchase_made":       true,
		"first_purchase_date": when,
	}
	if amount != nil {
		updates["first_purchase_amt"] = *amount
	}
	return s.set(userID, updates)
}

func (s *ProgressService) set(userID int64, updates map[string]interface{}) error {
	res := s.DB.Model(&models.ReferralProgress{}).Where("user_id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.Calc.Recalculate(userID)
}
