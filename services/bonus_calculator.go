package services

import (
	"errors"
	"log"

	"referral-flow-bot/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NPDRate is the flat self-employment withholding applied when converting
// gross bonuses to payable amounts. Rate changes apply only to new
// recalculations; amounts frozen on approved applications stay as stored.
const NPDRate = 0.06

// PaymentRule lists the progress flags a bank requires before the
// referrer's bonus counts as confirmed.
type PaymentRule struct {
	CardActivated bool
	PurchaseMade  bool
}

// PaymentRules keeps per-bank confirmation a data change, not a code
// change. Unknown banks fail closed.
var PaymentRules = map[string]PaymentRule{
	"t-bank": {CardActivated: true, PurchaseMade: true},
	"alpha":  {CardActivated: true, PurchaseMade: false},
}

// IsBonusConfirmed applies the bank's rule to the user's progress flags.
// Banks without a rule always return false.
func IsBonusConfirmed(bankKey string, progress *models.ReferralProgress) bool {
	rule, ok := PaymentRules[bankKey]
	if !ok {
		return false
	}
	if rule.CardActivated && !progress.CardActivated {
		return false
	}
	if rule.PurchaseMade && !progress.PurchaseMade {
		return false
	}
	return true
}

// NetFromGross applies the flat withholding: net = floor(gross * (1 - rate)).
func NetFromGross(gross int64) int64 {
	return int64(float64(gross) * (1 - NPDRate))
}

// BonusCalculator recomputes per-application bonus details and the
// FinancialData rollup. Nothing else may write FinancialData totals.
type BonusCalculator struct {
	DB *gorm.DB
}

func NewBonusCalculator(db *gorm.DB) *BonusCalculator {
	return &BonusCalculator{DB: db}
}

// Recalculate rebuilds the user's ApplicationBonus rows and FinancialData
// from the ledger and progress flags. Called whenever a progress flag
// changes or a new application is created.
//
// Approved applications use their frozen snapshot amount; pending ones
// track the offer's current gross so catalog edits show up before any
// money is promised. Rejected applications are excluded entirely.
func (c *BonusCalculator) Recalculate(userID int64) error {
	var progress models.ReferralProgress
	if err := c.DB.First(&progress, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var apps []models.Application
	if err := c.DB.Where("user_id = ? AND status <> ?", userID, models.ApplicationRejected).
		Order("created_at ASC").Find(&apps).Error; err != nil {
		return err
	}

	var totalGross, totalNet int64
	allConfirmed := true

	err := c.DB.Transaction(func(tx *gorm.DB) error {
		// Drop detail rows whose application left the non-rejected set, so
		// a rejection also clears the row written while it was pending.
		appIDs := make([]int64, 0, len(apps))
		for _, app := range apps {
			appIDs = append(appIDs, app.ID)
		}
		stale := tx.Where("user_id = ?", userID)
		if len(appIDs) > 0 {
			stale = stale.Where("application_id NOT IN ?", appIDs)
		}
		if err := stale.Delete(&models.ApplicationBonus{}).Error; err != nil {
			return err
		}

		for _, app := range apps {
			gross := app.GrossBonus
			if app.Status == models.ApplicationPending {
				var offer models.Offer
				if err := tx.First(&offer, app.OfferID).Error; err == nil {
					gross = offer.GrossBonus
				}
			}

			confirmed := IsBonusConfirmed(app.BankKey, &progress)
			net := NetFromGross(gross)

			var productName string
			tx.Model(&models.Product{}).
				Where("bank_key = ? AND product_key = ?", app.BankKey, app.ProductKey).
				Pluck("product_name", &productName)

			detail := &models.ApplicationBonus{
				UserID:        userID,
				ApplicationID: app.ID,
				BankKey:       app.BankKey,
				ProductKey:    app.ProductKey,
				ProductName:   productName,
				GrossBonus:    gross,
				NetBonus:      net,
				Confirmed:     confirmed,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "application_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"gross_bonus", "net_bonus", "confirmed", "product_name", "updated_at",
				}),
			}).Create(detail).Error; err != nil {
				return err
			}

			totalGross += gross
			if confirmed {
				totalNet += net
			} else {
				allConfirmed = false
			}
		}

		status := "pending"
		if allConfirmed && len(apps) > 0 {
			status = "confirmed"
		}

		return tx.Model(&models.FinancialData{}).Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"total_referral_bonus": totalGross,
				"total_referrer_bonus": totalNet,
				"bonus_status":         status,
			}).Error
	})
	if err != nil {
		return err
	}

	log.Printf("[Bonus] recalculated user %d: gross=%d net=%d", userID, totalGross, totalNet)
	return nil
}

// Details returns the per-application breakdown for a user's dashboard.
func (c *BonusCalculator) Details(userID int64) ([]models.ApplicationBonus, error) {
	var details []models.ApplicationBonus
	err := c.DB.Where("user_id = ?", userID).Order("id").Find(&details).Error
	return details, err
}

// Financial returns the cached rollup.
func (c *BonusCalculator) Financial(userID int64) (*models.FinancialData, error) {
	var fin models.FinancialData
	if err := c.DB.First(&fin, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &fin, nil
}
