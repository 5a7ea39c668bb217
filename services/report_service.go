package services

import (
	"database/sql"
	"time"

	"referral-flow-bot/models"

	"gorm.io/gorm"
)

// ReportService is read-only aggregation over the ledger joined with the
// catalog and users. Every number here is derivable from Application +
// Offer + User state alone — there are no hidden counters, so reports are
// always consistent with the ledger.
type ReportService struct {
	DB *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db}
}

type Summary struct {
	TotalConfirmed int64 `json:"total_confirmed"`
	ConfirmedCount int64 `json:"confirmed_count"`
	PendingCount   int64 `json:"pending_count"`
	RejectedCount  int64 `json:"rejected_count"`
	UsersCount     int64 `json:"users_count"`
}

// Summary is the dashboard headline: approved gross income, status counts
// and the number of distinct engaged users.
func (s *ReportService) Summary() (*Summary, error) {
	var out Summary
	err := s.DB.Model(&models.Application{}).
		Select(`
			COALESCE(SUM(CASE WHEN status = 'approved' THEN gross_bonus ELSE 0 END), 0) AS total_confirmed,
			SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END) AS confirmed_count,
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END) AS pending_count,
			SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END) AS rejected_count,
			COUNT(DISTINCT user_id) AS users_count`).
		Scan(&out).Error
	return &out, err
}

type FinanceDetail struct {
	ApplicationID int64      `json:"application_id"`
	UserID        int64      `json:"user_id"`
	BankKey       string     `json:"bank_key"`
	ProductKey    string     `json:"product_key"`
	ProductName   string     `json:"product_name"`
	GrossBonus    int64      `json:"gross_bonus"`
	NetBonus      int64      `json:"net_bonus"`
	ConfirmedAt   *time.Time `json:"confirmed_at"`
}

// FinanceDetails lists approved applications in the window, newest first.
func (s *ReportService) FinanceDetails(days int) ([]FinanceDetail, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	var rows []FinanceDetail
	err := s.DB.Model(&models.Application{}).
		Select(`applications.id AS application_id,
			applications.user_id,
			applications.bank_key,
			applications.product_key,
			products.product_name,
			applications.gross_bonus,
			applications.confirmed_at`).
		Joins("LEFT JOIN products ON products.bank_key = applications.bank_key AND products.product_key = applications.product_key").
		Where("applications.status = ? AND applications.confirmed_at >= ?", models.ApplicationApproved, since).
		Order("applications.confirmed_at DESC").
		Scan(&rows).Error
	for i := range rows {
		rows[i].NetBonus = NetFromGross(rows[i].GrossBonus)
	}
	return rows, err
}

type ProductFinance struct {
	BankKey        string `json:"bank_key"`
	ProductKey     string `json:"product_key"`
	ProductName    string `json:"product_name"`
	ConfirmedCount int64  `json:"confirmed_count"`
	TotalBonus     int64  `json:"total_bonus"`
}

func (s *ReportService) FinanceByProduct(days int) ([]ProductFinance, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	var rows []ProductFinance
	err := s.DB.Model(&models.Application{}).
		Select(`applications.bank_key,
			applications.product_key,
			products.product_name,
			COUNT(applications.id) AS confirmed_count,
			COALESCE(SUM(applications.gross_bonus), 0) AS total_bonus`).
		Joins("LEFT JOIN products ON products.bank_key = applications.bank_key AND products.product_key = applications.product_key").
		Where("applications.status = ? AND applications.confirmed_at >= ?", models.ApplicationApproved, since).
		Group("applications.bank_key, applications.product_key, products.product_name").
		Order("total_bonus DESC").
		Scan(&rows).Error
	return rows, err
}

type TrafficRow struct {
	TrafficSource  string `json:"traffic_source"`
	TotalUsers     int64  `json:"total_users"`
	ConfirmedCount int64  `json:"confirmed_count"`
	TotalBonus     int64  `json:"total_bonus"`
}

// TrafficOverview breaks confirmed income down by acquisition channel.
func (s *ReportService) TrafficOverview(days int) ([]TrafficRow, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	var rows []TrafficRow
	err := s.DB.Model(&models.User{}).
		Select(`users.traffic_source,
			COUNT(DISTINCT users.user_id) AS total_users,
			COUNT(applications.id) AS confirmed_count,
			COALESCE(SUM(applications.gross_bonus), 0) AS total_bonus`).
		Joins(`LEFT JOIN applications ON applications.user_id = users.user_id
			AND applications.status = 'approved'
			AND applications.confirmed_at >= ?`, since).
		Group("users.traffic_source").
		Order("total_bonus DESC").
		Scan(&rows).Error
	return rows, err
}

type TrafficProjection struct {
	TotalUsers      int64   `json:"total_users"`
	TotalBonus      int64   `json:"total_bonus"`
	AvgBonusPerUser float64 `json:"avg_bonus_per_user"`
}

func (s *ReportService) Projection(days int) (*TrafficProjection, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	var out TrafficProjection
	err := s.DB.Model(&models.User{}).
		Select(`COUNT(DISTINCT users.user_id) AS total_users,
			COALESCE(SUM(applications.gross_bonus), 0) AS total_bonus`).
		Joins(`LEFT JOIN applications ON applications.user_id = users.user_id
			AND applications.status = 'approved'
			AND applications.confirmed_at >= ?`, since).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	if out.TotalUsers > 0 {
		out.AvgBonusPerUser = float64(out.TotalBonus) / float64(out.TotalUsers)
	}
	return &out, nil
}

// --- Weekly snapshot ---

type BankWeekly struct {
	BankKey      string `json:"bank"`
	Applications int64  `json:"applications"`
	Approved     int64  `json:"approved"`
	Pending      int64  `json:"pending"`
	Rejected     int64  `json:"rejected"`
	GrossIncome  int64  `json:"gross_income"`
}

type WeeklySnapshot struct {
	PeriodStart  time.Time    `json:"period_start"`
	PeriodEnd    time.Time    `json:"period_end"`
	GeneratedAt  time.Time    `json:"generated_at"`
	Applications int64        `json:"applications"`
	Approved     int64        `json:"approved"`
	Pending      int64        `json:"pending"`
	Rejected     int64        `json:"rejected"`
	GrossIncome  int64        `json:"gross_income"`
	ByBank       []BankWeekly `json:"by_bank"`
}

// LastFullWeek returns the previous Monday–Sunday window (UTC, half-open
// end at the following Monday).
func LastFullWeek(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	weekday := int(now.Weekday()+6) % 7 // Monday = 0
	thisMonday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -weekday)
	lastMonday := thisMonday.AddDate(0, 0, -7)
	return lastMonday, thisMonday
}

// Weekly aggregates applications created in [start, end).
func (s *ReportService) Weekly(start, end time.Time) (*WeeklySnapshot, error) {
	snap := &WeeklySnapshot{
		PeriodStart: start,
		PeriodEnd:   end.AddDate(0, 0, -1),
		GeneratedAt: time.Now().UTC(),
	}

	// Scan into a flat row first: the snapshot struct carries the ByBank
	// slice, which GORM would try to treat as a relation.
	var totals struct {
		Applications int64
		Approved     int64
		Pending      int64
		Rejected     int64
		GrossIncome  int64
	}
	err := s.DB.Model(&models.Application{}).
		Select(`COUNT(*) AS applications,
			SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END) AS approved,
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END) AS pending,
			SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END) AS rejected,
			COALESCE(SUM(CASE WHEN status = 'approved' THEN gross_bonus ELSE 0 END), 0) AS gross_income`).
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	snap.Applications = totals.Applications
	snap.Approved = totals.Approved
	snap.Pending = totals.Pending
	snap.Rejected = totals.Rejected
	snap.GrossIncome = totals.GrossIncome

	err = s.DB.Model(&models.Application{}).
		Select(`bank_key,
			COUNT(*) AS applications,
			SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END) AS approved,
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END) AS pending,
			SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END) AS rejected,
			COALESCE(SUM(CASE WHEN status = 'approved' THEN gross_bonus ELSE 0 END), 0) AS gross_income`).
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("bank_key").
		Order("applications DESC").
		Scan(&snap.ByBank).Error
	return snap, err
}

// --- Reminder sweep / admin user list ---

// UsersNeedingReminder finds users whose progress went stale past the
// threshold: card received but not activated, or (t-bank only) card
// activated but no purchase yet.
func (s *ReportService) UsersNeedingReminder(thresholdDays int) ([]int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -thresholdDays)

	var stale []int64
	err := s.DB.Model(&models.ReferralProgress{}).
		Where("card_received = ? AND card_activated = ? AND card_received_date <= ?", true, false, cutoff).
		Pluck("user_id", &stale).Error
	if err != nil {
		return nil, err
	}

	var noPurchase []int64
	err = s.DB.Model(&models.ReferralProgress{}).
		Joins("JOIN applications ON applications.user_id = referral_progresses.user_id AND applications.bank_key = ?", "t-bank").
		Where("card_activated = ? AND purchase_made = ? AND card_activated_date <= ?", true, false, cutoff).
		Distinct().
		Pluck("referral_progresses.user_id", &noPurchase).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(stale))
	out := make([]int64, 0, len(stale)+len(noPurchase))
	for _, id := range append(stale, noPurchase...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

type AdminUserRow struct {
	UserID            int64      `json:"user_id"`
	FullName          string     `json:"full_name"`
	TrafficSource     string     `json:"traffic_source"`
	ApplicationsCount int64      `json:"applications_count"`
	LastActivity      *time.Time `json:"last_activity"`
}

// AdminUsersPage lists users with their engagement counts for the admin
// dashboard, most recently active first.
//
// MAX() strips the column's declared type, so the driver hands the
// timestamp back as text; scan it as a string and parse afterwards.
func (s *ReportService) AdminUsersPage(limit, offset int) ([]AdminUserRow, error) {
	var raw []struct {
		UserID            int64
		FullName          string
		TrafficSource     string
		ApplicationsCount int64
		LastActivity      sql.NullString
	}
	err := s.DB.Model(&models.User{}).
		Select(`users.user_id,
			users.full_name,
			users.traffic_source,
			COUNT(applications.id) AS applications_count,
			MAX(applications.created_at) AS last_activity`).
		Joins("LEFT JOIN applications ON applications.user_id = users.user_id").
		Group("users.user_id, users.full_name, users.traffic_source").
		Order("last_activity DESC").
		Limit(limit).Offset(offset).
		Scan(&raw).Error
	if err != nil {
		return nil, err
	}

	rows := make([]AdminUserRow, 0, len(raw))
	for _, r := range raw {
		row := AdminUserRow{
			UserID:            r.UserID,
			FullName:          r.FullName,
			TrafficSource:     r.TrafficSource,
			ApplicationsCount: r.ApplicationsCount,
		}
		if r.LastActivity.Valid {
			row.LastActivity = parseDBTime(r.LastActivity.String)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var dbTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseDBTime(s string) *time.Time {
	for _, layout := range dbTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
