package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"referral-flow-bot/utils"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Notifier delivers report text and documents to admin chats. Implemented
// by the Telegram bot; kept as an interface so jobs stay framework-free.
type Notifier interface {
	Notify(chatID int64, text string) error
	SendDocument(chatID int64, filename string, data []byte, caption string) error
}

// ReportExporter turns a weekly snapshot into an XLSX workbook, archives it
// to R2 when configured and delivers it to every admin.
type ReportExporter struct {
	Reports   *ReportService
	Notifier  Notifier
	AdminIDs  map[int64]bool
	R2Enabled bool
}

func NewReportExporter(reports *ReportService, notifier Notifier, adminIDs map[int64]bool, r2Enabled bool) *ReportExporter {
	return &ReportExporter{Reports: reports, Notifier: notifier, AdminIDs: adminIDs, R2Enabled: r2Enabled}
}

// SendWeeklyReport builds and delivers the weekly document for the last
// full calendar week. Individual admin delivery failures are logged and
// skipped so one blocked chat doesn't starve the rest.
func (e *ReportExporter) SendWeeklyReport(ctx context.Context) error {
	start, end := LastFullWeek(time.Now())
	snap, err := e.Reports.Weekly(start, end)
	if err != nil {
		return fmt.Errorf("weekly snapshot: %w", err)
	}

	doc, err := BuildWeeklyWorkbook(snap)
	if err != nil {
		return fmt.Errorf("weekly workbook: %w", err)
	}

	filename := fmt.Sprintf("weekly_report_%s.xlsx", start.Format("2006-01-02"))

	archiveNote := ""
	if e.R2Enabled {
		key := fmt.Sprintf("reports/%s_%s", uuid.NewString(), filename)
		url, err := utils.UploadBytesToR2(ctx, key,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", doc)
		if err != nil {
			log.Printf("[Report] R2 upload failed, delivering via chat only: %v", err)
		} else {
			archiveNote = "\n\n📦 Архив: " + url
		}
	}

	caption := weeklyCaption(snap) + archiveNote
	for adminID := range e.AdminIDs {
		if err := e.Notifier.SendDocument(adminID, filename, doc, caption); err != nil {
			log.Printf("[Report] failed to deliver weekly report to %d: %v", adminID, err)
		}
	}
	return nil
}

func weeklyCaption(snap *WeeklySnapshot) string {
	var banks bytes.Buffer
	for i, b := range snap.ByBank {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&banks, "• %s: %d заявок, %d подтверждено, %d ₽\n",
			b.BankKey, b.Applications, b.Approved, b.GrossIncome)
	}
	if banks.Len() == 0 {
		banks.WriteString("—\n")
	}
	return fmt.Sprintf(
		"📆 Еженедельный отчёт\n%s — %s\n\n"+
			"📝 Заявок: %d\n✅ Подтверждено: %d\n⏳ В ожидании: %d\n❌ Отклонено: %d\n💰 Gross доход: %d ₽\n\n"+
			"🏦 Топ банков:\n%s",
		snap.PeriodStart.Format("02.01.2006"), snap.PeriodEnd.Format("02.01.2006"),
		snap.Applications, snap.Approved, snap.Pending, snap.Rejected, snap.GrossIncome,
		banks.String(),
	)
}

// BuildWeeklyWorkbook renders the snapshot as a two-section sheet: summary
// block on top, per-bank table below.
func BuildWeeklyWorkbook(snap *WeeklySnapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Weekly"
	f.SetSheetName("Sheet1", sheet)

	rows := [][]interface{}{
		{"Период", fmt.Sprintf("%s — %s", snap.PeriodStart.Format("02.01.2006"), snap.PeriodEnd.Format("02.01.2006"))},
		{"Сформирован", snap.GeneratedAt.Format("02.01.2006 15:04")},
		{},
		{"Заявок", snap.Applications},
		{"Подтверждено", snap.Approved},
		{"В ожидании", snap.Pending},
		{"Отклонено", snap.Rejected},
		{"Gross доход", snap.GrossIncome},
		{},
		{"Банк", "Заявок", "Подтверждено", "В ожидании", "Отклонено", "Gross доход"},
	}
	for _, b := range snap.ByBank {
		rows = append(rows, []interface{}{
			b.BankKey, b.Applications, b.Approved, b.Pending, b.Rejected, b.GrossIncome,
		})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "F", 14)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
