package workers

import (
	"testing"
	"time"

	"referral-flow-bot/models"
	"referral-flow-bot/services"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newWorkerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// each :memory: connection is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.ReferralProgress{},
		&models.FinancialData{},
		&models.ReminderLog{},
		&models.Application{},
	))
	return db
}

// fakeNotifier records sent reminders and can simulate delivery failures.
type fakeNotifier struct {
	sent    []int64
	failFor map[int64]bool
}

func (f *fakeNotifier) Notify(chatID int64, text string) error {
	if f.failFor[chatID] {
		return assert.AnError
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func (f *fakeNotifier) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	return nil
}

func seedStaleUser(t *testing.T, db *gorm.DB, userID int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{UserID: userID, FullName: "Иванов Иван Иванович", TrafficSource: "organic"}).Error)
	stale := time.Now().UTC().AddDate(0, 0, -10)
	require.NoError(t, db.Create(&models.ReferralProgress{
		UserID:           userID,
		CardReceived:     true,
		CardReceivedDate: &stale,
	}).Error)
}

func TestSweepSendsOncePerDay(t *testing.T) {
	db := newWorkerDB(t)
	seedStaleUser(t, db, 1)
	seedStaleUser(t, db, 2)

	notifier := &fakeNotifier{}
	worker := NewReminderWorker(db, services.NewReportService(db), notifier, 7)

	worker.Sweep()
	assert.ElementsMatch(t, []int64{1, 2}, notifier.sent)

	var logs int64
	require.NoError(t, db.Model(&models.ReminderLog{}).Count(&logs).Error)
	assert.Equal(t, int64(2), logs)

	// second sweep within the same day is a no-op
	worker.Sweep()
	assert.Len(t, notifier.sent, 2)
	require.NoError(t, db.Model(&models.ReminderLog{}).Count(&logs).Error)
	assert.Equal(t, int64(2), logs)
}

func TestSweepFailedDeliveryIsNotLogged(t *testing.T) {
	db := newWorkerDB(t)
	seedStaleUser(t, db, 1)
	seedStaleUser(t, db, 2)

	notifier := &fakeNotifier{failFor: map[int64]bool{1: true}}
	worker := NewReminderWorker(db, services.NewReportService(db), notifier, 7)

	worker.Sweep()
	assert.Equal(t, []int64{2}, notifier.sent)

	// the failed user stays eligible for the next sweep
	notifier.failFor = nil
	worker.Sweep()
	assert.ElementsMatch(t, []int64{2, 1}, notifier.sent)
}

func TestSweepIgnoresFreshUsers(t *testing.T) {
	db := newWorkerDB(t)
	require.NoError(t, db.Create(&models.User{UserID: 1, FullName: "Иванов Иван Иванович", TrafficSource: "organic"}).Error)
	recent := time.Now().UTC().AddDate(0, 0, -2)
	require.NoError(t, db.Create(&models.ReferralProgress{
		UserID:           1,
		CardReceived:     true,
		CardReceivedDate: &recent,
	}).Error)

	notifier := &fakeNotifier{}
	NewReminderWorker(db, services.NewReportService(db), notifier, 7).Sweep()
	assert.Empty(t, notifier.sent)
}
