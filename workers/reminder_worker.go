package workers

import (
	"context"
	"log"
	"time"

	"referral-flow-bot/models"
	"referral-flow-bot/services"

	"gorm.io/gorm"
)

const reminderText = "🔔 Напоминание: пожалуйста, обновите статус вашей заявки — " +
	"это поможет быстрее начислить реферальный бонус!"

// ReminderWorker periodically nudges users whose progress flags went stale.
// The reminders_log table makes the sweep idempotent: a user reminded today
// is skipped even if two sweeps overlap.
type ReminderWorker struct {
	DB            *gorm.DB
	Reports       *services.ReportService
	Notifier      services.Notifier
	ThresholdDays int
}

func NewReminderWorker(db *gorm.DB, reports *services.ReportService, notifier services.Notifier, thresholdDays int) *ReminderWorker {
	return &ReminderWorker{DB: db, Reports: reports, Notifier: notifier, ThresholdDays: thresholdDays}
}

// Run sweeps on the given interval until the context is cancelled.
func (w *ReminderWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[Reminders] worker started (every %s, threshold %d days)", interval, w.ThresholdDays)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Reminders] worker stopped")
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep sends one reminder to every stale user not already reminded today.
func (w *ReminderWorker) Sweep() {
	userIDs, err := w.Reports.UsersNeedingReminder(w.ThresholdDays)
	if err != nil {
		log.Printf("[Reminders] sweep query failed: %v", err)
		return
	}

	sent := 0
	for _, userID := range userIDs {
		reminded, err := w.remindedToday(userID)
		if err != nil {
			log.Printf("[Reminders] log check failed for %d: %v", userID, err)
			continue
		}
		if reminded {
			continue
		}

		if err := w.Notifier.Notify(userID, reminderText); err != nil {
			log.Printf("[Reminders] send failed for %d: %v", userID, err)
			continue
		}
		if err := w.DB.Create(&models.ReminderLog{UserID: userID, AdminID: 0}).Error; err != nil {
			log.Printf("[Reminders] log write failed for %d: %v", userID, err)
		}
		sent++
	}
	if sent > 0 {
		log.Printf("[Reminders] sweep done, %d reminders sent", sent)
	}
}

func (w *ReminderWorker) remindedToday(userID int64) (bool, error) {
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	var count int64
	err := w.DB.Model(&models.ReminderLog{}).
		Where("user_id = ? AND sent_at >= ?", userID, dayStart).
		Count(&count).Error
	return count > 0, err
}
