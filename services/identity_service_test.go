package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"referral-flow-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesPairedRows(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db, newTestCipher(t))

	user, err := svc.Register(123, "Иванов Иван Иванович", "blog")
	require.NoError(t, err)
	assert.Equal(t, int64(123), user.UserID)
	assert.Equal(t, "blog", user.TrafficSource)

	var progress models.ReferralProgress
	require.NoError(t, db.First(&progress, "user_id = ?", 123).Error)
	var fin models.FinancialData
	require.NoError(t, db.First(&fin, "user_id = ?", 123).Error)
	assert.Equal(t, "pending", fin.BonusStatus)
}

func TestRegisterIsIdempotentUpsert(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db, newTestCipher(t))

	_, err := svc.Register(123, "Иванов Иван Иванович", "blog")
	require.NoError(t, err)
	_, err = svc.Register(123, "Иванов Иван Петрович", "ads")
	require.NoError(t, err)

	got, err := svc.GetUser(123)
	require.NoError(t, err)
	assert.Equal(t, "Иванов Иван Петрович", got.FullName)
	// the traffic tag is assigned at first contact and never rewritten
	assert.Equal(t, "blog", got.TrafficSource)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRegisterDefaultsAndTruncatesTrafficSource(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db, newTestCipher(t))

	user, err := svc.Register(1, "Иванов Иван Иванович", "")
	require.NoError(t, err)
	assert.Equal(t, "organic", user.TrafficSource)

	long := "channel-with-a-very-long-identifier-far-over-limit"
	user, err = svc.Register(2, "Петров Пётр Петрович", long)
	require.NoError(t, err)
	assert.Equal(t, 32, utf8.RuneCountInString(user.TrafficSource))

	// truncation counts runes, so a cyrillic tag is never cut mid-character
	cyrillic := strings.Repeat("ютуб-канал", 5)
	user, err = svc.Register(3, "Сидоров Сидор Сидорович", cyrillic)
	require.NoError(t, err)
	assert.Equal(t, 32, utf8.RuneCountInString(user.TrafficSource))
	assert.True(t, utf8.ValidString(user.TrafficSource))
	assert.Equal(t, string([]rune(cyrillic)[:32]), user.TrafficSource)
}

func TestRegisterRejectsBadName(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db, newTestCipher(t))

	_, err := svc.Register(1, "Bob", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPhoneLookupRoundTrip(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db, newTestCipher(t))

	_, err := svc.Register(123, "Иванов Иван Иванович", "")
	require.NoError(t, err)
	require.NoError(t, svc.AttachPhone(123, "+7 (916) 123-45-67"))

	// Lookup succeeds regardless of how the phone was formatted either time.
	for _, q := range []string{"79161234567", "89161234567", "8 (916) 123 45 67", "9161234567"} {
		got, err := svc.LookupByPhone(q)
		require.NoError(t, err, "query %q", q)
		assert.Equal(t, int64(123), got.UserID)
	}

	// Stored phone decrypts back to the canonical form.
	user, err := svc.GetUser(123)
	require.NoError(t, err)
	phone, err := svc.Phone(user)
	require.NoError(t, err)
	assert.Equal(t, "79161234567", phone)
}

func TestLookupByPhoneNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db, newTestCipher(t))

	_, err := svc.LookupByPhone("79161234567")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnonymizeKeepsLedgerHistory(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db, newTestCipher(t))

	_, err := svc.Register(123, "Иванов Иван Иванович", "blog")
	require.NoError(t, err)
	require.NoError(t, svc.AttachPhone(123, "79161234567"))
	require.NoError(t, db.Create(&models.Application{
		UserID: 123, OfferID: 1, BankKey: "t-bank", ProductKey: "black",
		Status: models.ApplicationApproved, GrossBonus: 3000,
	}).Error)

	require.NoError(t, svc.Anonymize(123))

	user, err := svc.GetUser(123)
	require.NoError(t, err)
	assert.Equal(t, "[deleted]", user.FullName)
	assert.Equal(t, "deleted", user.TrafficSource)
	assert.Nil(t, user.PhoneHash)
	assert.Empty(t, user.PhoneEnc)

	var apps int64
	db.Model(&models.Application{}).Where("user_id = ?", 123).Count(&apps)
	assert.Equal(t, int64(1), apps)

	_, err = svc.LookupByPhone("79161234567")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEraseCascades(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db, newTestCipher(t))

	_, err := svc.Register(123, "Иванов Иван Иванович", "")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Application{
		UserID: 123, OfferID: 1, BankKey: "t-bank", ProductKey: "black",
		Status: models.ApplicationPending, GrossBonus: 3000,
	}).Error)

	require.NoError(t, svc.Erase(123))

	_, err = svc.GetUser(123)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, m := range []interface{}{&models.Application{}, &models.ReferralProgress{}, &models.FinancialData{}} {
		var count int64
		db.Model(m).Where("user_id = ?", 123).Count(&count)
		assert.Zero(t, count)
	}

	assert.ErrorIs(t, svc.Erase(123), ErrNotFound)
}

func TestTypedFieldSetters(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db, newTestCipher(t))

	_, err := svc.Register(123, "Иванов Иван Иванович", "")
	require.NoError(t, err)

	require.NoError(t, svc.SetTrafficSource(123, "youtube"))
	require.NoError(t, svc.SetFullName(123, "Сидоров Сидор Сидорович"))
	assert.ErrorIs(t, svc.SetFullName(123, "x"), ErrValidation)
	assert.ErrorIs(t, svc.SetTrafficSource(999, "nope"), ErrNotFound)

	user, err := svc.GetUser(123)
	require.NoError(t, err)
	assert.Equal(t, "youtube", user.TrafficSource)
	assert.Equal(t, "Сидоров Сидор Сидорович", user.FullName)
}
