package services

import (
	"testing"
	"time"

	"referral-flow-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedLedger builds three users with one application each: one approved,
// one pending, one rejected. Returns the application IDs in that order.
func seedLedger(t *testing.T, db *gorm.DB) (int64, int64, int64) {
	t.Helper()
	identity := NewIdentityService(db, newTestCipher(t))
	for id, src := range map[int64]string{1: "organic", 2: "blogger_x", 3: "blogger_x"} {
		_, err := identity.Register(id, "Иванов Иван Иванович", src)
		require.NoError(t, err)
	}

	offerID := seedOffer(t, db, 3000)
	apps := NewApplicationService(db)

	approved, err := apps.Create(1, offerID, nil)
	require.NoError(t, err)
	pending, err := apps.Create(2, offerID, nil)
	require.NoError(t, err)
	rejected, err := apps.Create(3, offerID, nil)
	require.NoError(t, err)

	require.NoError(t, apps.Approve(approved.ID, 3000))
	require.NoError(t, apps.Reject(rejected.ID))
	return approved.ID, pending.ID, rejected.ID
}

func TestSummaryCounts(t *testing.T) {
	db := newTestDB(t)
	seedLedger(t, db)

	sum, err := NewReportService(db).Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(3000), sum.TotalConfirmed)
	assert.Equal(t, int64(1), sum.ConfirmedCount)
	assert.Equal(t, int64(1), sum.PendingCount)
	assert.Equal(t, int64(1), sum.RejectedCount)
	assert.Equal(t, int64(3), sum.UsersCount)
}

func TestFinanceDetailsApprovedOnly(t *testing.T) {
	db := newTestDB(t)
	approvedID, _, _ := seedLedger(t, db)

	rows, err := NewReportService(db).FinanceDetails(30)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, approvedID, rows[0].ApplicationID)
	assert.Equal(t, int64(3000), rows[0].GrossBonus)
	assert.Equal(t, int64(2820), rows[0].NetBonus)
	assert.Equal(t, "Black", rows[0].ProductName)
	require.NotNil(t, rows[0].ConfirmedAt)
}

func TestTrafficOverviewGroupsBySource(t *testing.T) {
	db := newTestDB(t)
	seedLedger(t, db)

	rows, err := NewReportService(db).TrafficOverview(30)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	bySource := make(map[string]TrafficRow, len(rows))
	for _, r := range rows {
		bySource[r.TrafficSource] = r
	}
	assert.Equal(t, int64(1), bySource["organic"].TotalUsers)
	assert.Equal(t, int64(1), bySource["organic"].ConfirmedCount)
	assert.Equal(t, int64(3000), bySource["organic"].TotalBonus)
	// pending and rejected users still count as users, just with no income
	assert.Equal(t, int64(2), bySource["blogger_x"].TotalUsers)
	assert.Equal(t, int64(0), bySource["blogger_x"].ConfirmedCount)
	assert.Equal(t, int64(0), bySource["blogger_x"].TotalBonus)
}

func TestLastFullWeek(t *testing.T) {
	// Wednesday 2025-06-11 → previous Mon 2025-06-02 .. Mon 2025-06-09
	now := time.Date(2025, 6, 11, 15, 4, 5, 0, time.UTC)
	start, end := LastFullWeek(now)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), end)

	// on a Monday the window is still the week that just ended
	monday := time.Date(2025, 6, 9, 0, 30, 0, 0, time.UTC)
	start, end = LastFullWeek(monday)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), end)

	// on a Sunday the running week is excluded
	sunday := time.Date(2025, 6, 8, 23, 59, 0, 0, time.UTC)
	start, end = LastFullWeek(sunday)
	assert.Equal(t, time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), end)
}

func TestWeeklyWindowIsHalfOpen(t *testing.T) {
	db := newTestDB(t)
	seedLedger(t, db)

	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	// move one application inside the window, one exactly on the end bound
	var apps []models.Application
	require.NoError(t, db.Order("id").Find(&apps).Error)
	require.Len(t, apps, 3)
	require.NoError(t, db.Model(&models.Application{}).Where("id = ?", apps[0].ID).
		Update("created_at", start.Add(24*time.Hour)).Error)
	require.NoError(t, db.Model(&models.Application{}).Where("id = ?", apps[1].ID).
		Update("created_at", end).Error)
	require.NoError(t, db.Model(&models.Application{}).Where("id = ?", apps[2].ID).
		Update("created_at", start.Add(-time.Second)).Error)

	snap, err := NewReportService(db).Weekly(start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Applications)
	assert.Equal(t, int64(1), snap.Approved)
	assert.Equal(t, int64(3000), snap.GrossIncome)
	require.Len(t, snap.ByBank, 1)
	assert.Equal(t, "t-bank", snap.ByBank[0].BankKey)
	assert.Equal(t, start, snap.PeriodStart)
	assert.Equal(t, end.AddDate(0, 0, -1), snap.PeriodEnd)
}

func TestUsersNeedingReminder(t *testing.T) {
	db := newTestDB(t)
	identity := NewIdentityService(db, newTestCipher(t))
	for id := int64(1); id <= 3; id++ {
		_, err := identity.Register(id, "Иванов Иван Иванович", "organic")
		require.NoError(t, err)
	}
	offerID := seedOffer(t, db, 3000)
	apps := NewApplicationService(db)
	_, err := apps.Create(2, offerID, nil)
	require.NoError(t, err)

	stale := time.Now().UTC().AddDate(0, 0, -10)

	// user 1: card received 10 days ago, never activated → remind
	require.NoError(t, db.Model(&models.ReferralProgress{}).Where("user_id = ?", 1).
		Updates(map[string]interface{}{"card_received": true, "card_received_date": stale}).Error)
	// user 2: t-bank application, activated 10 days ago, no purchase → remind
	require.NoError(t, db.Model(&models.ReferralProgress{}).Where("user_id = ?", 2).
		Updates(map[string]interface{}{
			"card_received": true, "card_received_date": stale,
			"card_activated": true, "card_activated_date": stale,
		}).Error)
	// user 3: no progress at all → leave alone
	ids, err := NewReportService(db).UsersNeedingReminder(7)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids)

	// a tighter threshold than the staleness excludes everyone
	ids, err = NewReportService(db).UsersNeedingReminder(14)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAdminUsersPage(t *testing.T) {
	db := newTestDB(t)
	seedLedger(t, db)

	rows, err := NewReportService(db).AdminUsersPage(10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, int64(1), r.ApplicationsCount)
		require.NotNil(t, r.LastActivity)
	}

	rows, err = NewReportService(db).AdminUsersPage(2, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
