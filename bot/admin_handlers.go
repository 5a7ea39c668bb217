package bot

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"referral-flow-bot/models"
	"referral-flow-bot/services"
)

func (b *Bot) handleAdminCommand(m *tgbotapi.Message) {
	chatID := m.Chat.ID
	if !b.isAdmin(m.From.ID) {
		b.reply(chatID, "Команда доступна только администраторам.")
		return
	}

	switch m.Command() {
	case "pending":
		b.showPendingQueue(chatID)
	case "summary":
		b.showAdminSummary(chatID)
	case "remind":
		b.sendManualReminder(chatID, m.From.ID, m.CommandArguments())
	}
}

// showPendingQueue lists the oldest pending applications, each with its own
// approve/reject buttons.
func (b *Bot) showPendingQueue(chatID int64) {
	apps, err := b.Applications.Pending()
	if err != nil {
		log.Printf("pending queue load failed: %v", err)
		b.reply(chatID, supportFallback)
		return
	}
	if len(apps) == 0 {
		b.reply(chatID, "🎉 Очередь пуста — все заявки обработаны.")
		return
	}

	const maxShown = 10
	for i, app := range apps {
		if i >= maxShown {
			b.reply(chatID, fmt.Sprintf("… и ещё %d заявок в очереди.", len(apps)-maxShown))
			break
		}
		text := fmt.Sprintf(
			"📝 Заявка #%d\n👤 Пользователь: %d\n🏦 %s / %s\n💰 %d ₽\n🗓 %s",
			app.ID, app.UserID, app.BankKey, app.ProductKey,
			app.GrossBonus, app.CreatedAt.Format("02.01.2006 15:04"),
		)
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = pendingAppKeyboard(app.ID)
		_, _ = b.API.Send(msg)
	}
}

func (b *Bot) showAdminSummary(chatID int64) {
	summary, err := b.Reports.Summary()
	if err != nil {
		log.Printf("summary load failed: %v", err)
		b.reply(chatID, supportFallback)
		return
	}
	traffic, err := b.Reports.TrafficOverview(30)
	if err != nil {
		log.Printf("traffic load failed: %v", err)
		b.reply(chatID, supportFallback)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb,
		"📈 Сводка\n\n👥 Пользователей с заявками: %d\n✅ Подтверждено: %d (%d ₽)\n⏳ В ожидании: %d\n❌ Отклонено: %d\n",
		summary.UsersCount, summary.ConfirmedCount, summary.TotalConfirmed,
		summary.PendingCount, summary.RejectedCount,
	)
	if len(traffic) > 0 {
		sb.WriteString("\n🌐 Источники (30 дней):\n")
		for _, t := range traffic {
			fmt.Fprintf(&sb, "• %s: %d польз., %d ₽\n", t.TrafficSource, t.TotalUsers, t.TotalBonus)
		}
	}
	b.reply(chatID, sb.String())
}

// sendManualReminder pings a specific user on an admin's request and logs
// it under the admin's id.
func (b *Bot) sendManualReminder(chatID, adminID int64, args string) {
	userID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		b.reply(chatID, "Использование: /remind <user_id>")
		return
	}
	if err := b.Notify(userID, reminderTextManual); err != nil {
		b.reply(chatID, fmt.Sprintf("❌ Не удалось отправить напоминание пользователю %d.", userID))
		return
	}
	if err := b.logReminder(userID, adminID); err != nil {
		log.Printf("reminder log failed: %v", err)
	}
	b.reply(chatID, "🔔 Напоминание отправлено.")
}

const reminderTextManual = "🔔 Напоминание: пожалуйста, обновите статус вашей заявки!"

// handleApplicationDecision resolves approve/reject callbacks. The guarded
// transition makes double taps harmless: the second actor just sees
// "already processed".
func (b *Bot) handleApplicationDecision(chatID, adminID int64, action, rawID string) {
	if !b.isAdmin(adminID) {
		b.reply(chatID, "Действие доступно только администраторам.")
		return
	}
	appID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return
	}

	app, err := b.Applications.Get(appID)
	if err != nil {
		b.reply(chatID, "Заявка не найдена.")
		return
	}

	if action == "app_approve" {
		err = b.Applications.Approve(appID, app.GrossBonus)
	} else {
		err = b.Applications.Reject(appID)
	}

	switch {
	case errors.Is(err, services.ErrConflict):
		b.reply(chatID, "⚠️ Заявка уже обработана другим администратором.")
		return
	case err != nil:
		log.Printf("application %d transition failed: %v", appID, err)
		b.reply(chatID, supportFallback)
		return
	}

	if err := b.Calc.Recalculate(app.UserID); err != nil {
		log.Printf("recalc failed for %d: %v", app.UserID, err)
	}

	if action == "app_approve" {
		b.reply(chatID, fmt.Sprintf("✅ Заявка #%d подтверждена.", appID))
		b.reply(app.UserID, "🎉 Ваша заявка подтверждена! Бонус будет начислен после выполнения условий.")
	} else {
		b.reply(chatID, fmt.Sprintf("❌ Заявка #%d отклонена.", appID))
	}
}

func (b *Bot) logReminder(userID, adminID int64) error {
	return b.DB.Create(&models.ReminderLog{UserID: userID, AdminID: adminID}).Error
}
