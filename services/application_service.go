package services

import (
	"errors"
	"fmt"
	"time"

	"referral-flow-bot/models"

	"gorm.io/gorm"
)

// ApplicationService is the enrollment ledger. Status transitions are
// guarded at the database level: the UPDATE's WHERE clause pins
// status='pending', so of two racing admin actions exactly one wins and
// the loser sees RowsAffected == 0.
type ApplicationService struct {
	DB *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{DB: db}
}

// Create inserts a pending application, snapshotting the offer's current
// gross bonus so later offer edits never alter amounts already promised.
// The offer must exist and be active.
func (s *ApplicationService) Create(userID, offerID int64, variantKey *string) (*models.Application, error) {
	var offer models.Offer
	if err := s.DB.First(&offer, offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !offer.IsActive {
		return nil, ErrNotFound
	}

	productKey := offer.ParentKey
	if offer.ParentType == models.OfferParentVariant {
		// Offers on a variant still ledger under the owning product.
		var variant models.Variant
		err := s.DB.Where("bank_key = ? AND variant_key = ?", offer.BankKey, offer.ParentKey).
			First(&variant).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		productKey = variant.ProductKey
		if variantKey == nil {
			variantKey = &variant.VariantKey
		}
	}

	app := &models.Application{
		UserID:     userID,
		OfferID:    offer.ID,
		BankKey:    offer.BankKey,
		ProductKey: productKey,
		VariantKey: variantKey,
		Status:     models.ApplicationPending,
		GrossBonus: offer.GrossBonus,
	}
	if err := s.DB.Create(app).Error; err != nil {
		return nil, err
	}
	return app, nil
}

// Approve moves a pending application to approved, freezing the (possibly
// admin-overridden) bonus amount. Returns ErrConflict when the application
// was already processed by another actor.
func (s *ApplicationService) Approve(applicationID, bonusAmount int64) error {
	if bonusAmount < 0 {
		return fmt.Errorf("%w: bonus amount must be non-negative", ErrValidation)
	}
	now := time.Now().UTC()
	return s.transition(applicationID, map[string]interface{}{
		"status":       models.ApplicationApproved,
		"gross_bonus":  bonusAmount,
		"confirmed_at": &now,
	})
}

// Reject moves a pending application to rejected. Same conflict semantics
// as Approve.
func (s *ApplicationService) Reject(applicationID int64) error {
	return s.transition(applicationID, map[string]interface{}{
		"status": models.ApplicationRejected,
	})
}

func (s *ApplicationService) transition(applicationID int64, updates map[string]interface{}) error {
	res := s.DB.Model(&models.Application{}).
		Where("id = ? AND status = ?", applicationID, models.ApplicationPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.DB.Model(&models.Application{}).Where("id = ?", applicationID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (s *ApplicationService) Get(applicationID int64) (*models.Application, error) {
	var app models.Application
	if err := s.DB.First(&app, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

// ByUser returns a user's applications, most recent first.
func (s *ApplicationService) ByUser(userID int64) ([]models.Application, error) {
	var apps []models.Application
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&apps).Error
	return apps, err
}

// UserPage is the paginated history shown in the bot profile.
func (s *ApplicationService) UserPage(userID int64, limit, offset int) ([]models.Application, error) {
	var apps []models.Application
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&apps).Error
	return apps, err
}

func (s *ApplicationService) ByBank(bankKey string) ([]models.Application, error) {
	var apps []models.Application
	err := s.DB.Where("bank_key = ?", bankKey).Order("created_at DESC").Find(&apps).Error
	return apps, err
}

// Pending is the admin work queue, oldest first.
func (s *ApplicationService) Pending() ([]models.Application, error) {
	var apps []models.Application
	err := s.DB.Where("status = ?", models.ApplicationPending).
		Order("created_at ASC").Find(&apps).Error
	return apps, err
}

// Recent returns applications created within the rolling window.
func (s *ApplicationService) Recent(days int) ([]models.Application, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	var apps []models.Application
	err := s.DB.Where("created_at >= ?", since).Order("created_at DESC").Find(&apps).Error
	return apps, err
}
