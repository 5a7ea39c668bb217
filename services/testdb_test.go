package services

import (
	"testing"

	"referral-flow-bot/models"
	"referral-flow-bot/utils"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One connection only: each sqlite :memory: connection is a separate DB.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.ReferralProgress{},
		&models.FinancialData{},
		&models.Bank{},
		&models.Product{},
		&models.Variant{},
		&models.Offer{},
		&models.ReferralLink{},
		&models.Application{},
		&models.ApplicationBonus{},
		&models.ReminderLog{},
	))
	return db
}

func newTestCipher(t *testing.T) *utils.PhoneCipher {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	cipher, err := utils.NewPhoneCipher(key)
	require.NoError(t, err)
	return cipher
}
