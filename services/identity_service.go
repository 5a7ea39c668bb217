package services

import (
	"errors"
	"fmt"
	"log"

	"referral-flow-bot/models"
	"referral-flow-bot/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityService owns user registration, phone lookup and data-erasure.
// The phone cipher is injected at startup (process lifetime).
type IdentityService struct {
	DB     *gorm.DB
	Cipher *utils.PhoneCipher
}

func NewIdentityService(db *gorm.DB, cipher *utils.PhoneCipher) *IdentityService {
	return &IdentityService{DB: db, Cipher: cipher}
}

// Register is an idempotent upsert keyed by the Telegram user id. It also
// creates the paired ReferralProgress and FinancialData rows when missing.
// Traffic source is truncated to 32 chars, defaults to "organic" and is
// assigned at first contact only: a repeat registration never rewrites it.
func (s *IdentityService) Register(userID int64, fullName, trafficSource string) (*models.User, error) {
	if !ValidFullName(fullName) {
		return nil, fmt.Errorf("%w: full name must be 5-60 cyrillic letters", ErrValidation)
	}
	if trafficSource == "" {
		trafficSource = "organic"
	}
	trafficSource = truncateRunes(trafficSource, 32)

	user := &models.User{
		UserID:        userID,
		FullName:      fullName,
		TrafficSource: trafficSource,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name"}),
		}).Create(user).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ReferralProgress{UserID: userID}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.FinancialData{UserID: userID, BonusStatus: "pending"}).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AttachPhone normalizes, encrypts and hashes the phone for the given user.
func (s *IdentityService) AttachPhone(userID int64, phone string) error {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	enc, err := s.Cipher.Encrypt(normalized)
	if err != nil {
		return err
	}
	hash := s.Cipher.Hash(normalized)

	res := s.DB.Model(&models.User{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{"phone_enc": enc, "phone_hash": hash})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *IdentityService) GetUser(userID int64) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *IdentityService) Exists(userID int64) (bool, error) {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LookupByPhone resolves a user via the phone hash index. No decryption or
// table scan involved: the hash is a deterministic function of the
// normalized phone.
func (s *IdentityService) LookupByPhone(phone string) (*models.User, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	hash := s.Cipher.Hash(normalized)

	var user models.User
	if err := s.DB.First(&user, "phone_hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Phone decrypts the stored phone of a user, for admin views only.
func (s *IdentityService) Phone(user *models.User) (string, error) {
	if len(user.PhoneEnc) == 0 {
		return "", ErrNotFound
	}
	return s.Cipher.Decrypt(user.PhoneEnc)
}

// SetTrafficSource and SetFullName are the only mutable user fields — a
// typed allow-list instead of a string-keyed field dispatch.
func (s *IdentityService) SetTrafficSource(userID int64, source string) error {
	return s.updateField(userID, "traffic_source", truncateRunes(source, 32))
}

func (s *IdentityService) SetFullName(userID int64, fullName string) error {
	if !ValidFullName(fullName) {
		return fmt.Errorf("%w: full name must be 5-60 cyrillic letters", ErrValidation)
	}
	return s.updateField(userID, "full_name", fullName)
}

// truncateRunes cuts by runes, not bytes, so a multi-byte tag is never
// split mid-character.
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func (s *IdentityService) updateField(userID int64, column string, value interface{}) error {
	res := s.DB.Model(&models.User{}).Where("user_id = ?", userID).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Anonymize overwrites personal fields with sentinel values while keeping
// the ledger history intact (data-retention requests).
func (s *IdentityService) Anonymize(userID int64) error {
	res := s.DB.Model(&models.User{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"full_name":      "[deleted]",
			"phone_enc":      nil,
			"phone_hash":     nil,
			"traffic_source": "deleted",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	log.Printf("[Identity] anonymized user %d", userID)
	return nil
}

// Erase hard-deletes the user and all dependent rows.
func (s *IdentityService) Erase(userID int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.ApplicationBonus{},
			&models.Application{},
			&models.ReminderLog{},
			&models.ReferralProgress{},
			&models.FinancialData{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.User{}, "user_id = ?", userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
