package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"referral-flow-bot/services"
)

const supportFallback = "😔 Раздел временно недоступен, обратитесь в поддержку."

func (b *Bot) handleMessage(m *tgbotapi.Message) {
	chatID := m.Chat.ID

	if m.IsCommand() {
		b.handleCommand(m)
		return
	}

	if m.Contact != nil {
		b.handleContact(m)
		return
	}

	st := b.state(chatID)
	switch st.Step {
	case stepAwaitName:
		b.handleNameInput(m, st)
		return
	}

	switch m.Text {
	case btnBanks:
		b.showBanks(chatID)
	case btnStatus:
		b.showStatus(chatID)
	case btnFinance:
		b.showFinance(chatID)
	case btnDeleteMe:
		b.askDeleteConfirmation(chatID)
	default:
		b.reply(chatID, "Не понимаю. Воспользуйтесь меню ниже 👇")
	}
}

func (b *Bot) handleCommand(m *tgbotapi.Message) {
	chatID := m.Chat.ID
	switch m.Command() {
	case "start":
		b.handleStart(m)
	case "delete_me":
		b.askDeleteConfirmation(chatID)
	case "pending", "summary", "remind":
		b.handleAdminCommand(m)
	default:
		b.reply(chatID, "Неизвестная команда.")
	}
}

// handleStart begins onboarding. The deep-link payload, if present, is the
// traffic source tag assigned at first contact.
func (b *Bot) handleStart(m *tgbotapi.Message) {
	chatID := m.Chat.ID

	exists, err := b.Identity.Exists(m.From.ID)
	if err != nil {
		log.Printf("exists check failed for %d: %v", m.From.ID, err)
		b.reply(chatID, supportFallback)
		return
	}
	if exists {
		msg := tgbotapi.NewMessage(chatID, "С возвращением! 👋")
		msg.ReplyMarkup = mainMenuKeyboard()
		_, _ = b.API.Send(msg)
		return
	}

	st := b.state(chatID)
	st.Step = stepAwaitName
	st.TrafficSource = strings.TrimSpace(m.CommandArguments())

	b.reply(chatID, "👋 Добро пожаловать! Введите, пожалуйста, ваше ФИО (как в паспорте).")
}

func (b *Bot) handleNameInput(m *tgbotapi.Message, st *chatState) {
	chatID := m.Chat.ID

	if _, err := b.Identity.Register(m.From.ID, strings.TrimSpace(m.Text), st.TrafficSource); err != nil {
		if errors.Is(err, services.ErrValidation) {
			b.reply(chatID, "⚠️ ФИО должно содержать 5–60 русских букв. Попробуйте ещё раз.")
			return
		}
		log.Printf("register failed for %d: %v", m.From.ID, err)
		b.reply(chatID, supportFallback)
		return
	}

	st.Step = stepAwaitPhone
	msg := tgbotapi.NewMessage(chatID, "Отлично! Теперь отправьте номер телефона кнопкой ниже.")
	msg.ReplyMarkup = contactKeyboard()
	_, _ = b.API.Send(msg)
}

func (b *Bot) handleContact(m *tgbotapi.Message) {
	chatID := m.Chat.ID

	if m.Contact.UserID != m.From.ID {
		b.reply(chatID, "⚠️ Пожалуйста, отправьте свой собственный контакт.")
		return
	}

	if err := b.Identity.AttachPhone(m.From.ID, m.Contact.PhoneNumber); err != nil {
		if errors.Is(err, services.ErrValidation) {
			b.reply(chatID, "⚠️ Не удалось распознать номер. Нужен российский номер из 11 цифр.")
			return
		}
		log.Printf("attach phone failed for %d: %v", m.From.ID, err)
		b.reply(chatID, supportFallback)
		return
	}

	b.resetState(chatID)
	msg := tgbotapi.NewMessage(chatID, "✅ Регистрация завершена! Выберите банк, чтобы получить ссылку.")
	msg.ReplyMarkup = mainMenuKeyboard()
	_, _ = b.API.Send(msg)
}

// --- Catalog browsing ---

func (b *Bot) showBanks(chatID int64) {
	banks, err := b.Catalog.ActiveBanks()
	if err != nil || len(banks) == 0 {
		b.reply(chatID, supportFallback)
		return
	}
	msg := tgbotapi.NewMessage(chatID, "🏦 Выберите банк:")
	msg.ReplyMarkup = banksKeyboard(banks)
	_, _ = b.API.Send(msg)
}

func (b *Bot) showProducts(chatID int64, bankKey string) {
	products, err := b.Catalog.ProductsByBank(bankKey, false)
	if err != nil {
		b.reply(chatID, supportFallback)
		return
	}
	if len(products) == 0 {
		b.reply(chatID, "По этому банку пока нет активных продуктов.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, "💳 Выберите продукт:")
	msg.ReplyMarkup = productsKeyboard(bankKey, products)
	_, _ = b.API.Send(msg)
}

func (b *Bot) showVariantsOrOffers(chatID int64, bankKey, productKey string) {
	variants, err := b.Catalog.VariantsByProduct(bankKey, productKey, false)
	if err != nil {
		b.reply(chatID, supportFallback)
		return
	}
	if len(variants) > 0 {
		msg := tgbotapi.NewMessage(chatID, "🎯 Выберите вариант предложения:")
		msg.ReplyMarkup = variantsKeyboard(bankKey, productKey, variants)
		_, _ = b.API.Send(msg)
		return
	}
	b.showOffers(chatID, bankKey, "product", productKey)
}

func (b *Bot) showOffers(chatID int64, bankKey, parentType, parentKey string) {
	offers, err := b.Catalog.OffersByParent(bankKey, parentTypeOf(parentType), parentKey, false)
	if err != nil {
		b.reply(chatID, supportFallback)
		return
	}
	if len(offers) == 0 {
		b.reply(chatID, "По этому продукту пока нет активных предложений.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, "🎁 Доступные бонусы:")
	msg.ReplyMarkup = offersKeyboard(offers)
	_, _ = b.API.Send(msg)
}

// --- Status & finance ---

func (b *Bot) showStatus(chatID int64) {
	progress, err := b.Progress.Get(chatID)
	if err != nil {
		b.reply(chatID, "Сначала пройдите регистрацию: /start")
		return
	}
	msg := tgbotapi.NewMessage(chatID,
		"📊 Отметьте выполненные шаги — от них зависит подтверждение бонуса:")
	msg.ReplyMarkup = progressKeyboard(progress)
	_, _ = b.API.Send(msg)
}

func (b *Bot) showFinance(chatID int64) {
	fin, err := b.Calc.Financial(chatID)
	if err != nil {
		b.reply(chatID, "Сначала пройдите регистрацию: /start")
		return
	}
	details, err := b.Calc.Details(chatID)
	if err != nil {
		b.reply(chatID, supportFallback)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 Ваши бонусы\n\nСтатус: %s\nИтого к выплате: %d ₽\n", statusRu(fin.BonusStatus), fin.TotalReferrerBonus)
	if len(details) > 0 {
		sb.WriteString("\nПо продуктам:\n")
		for _, d := range details {
			check := "⏳"
			if d.Confirmed {
				check = "✅"
			}
			name := d.ProductName
			if name == "" {
				name = d.ProductKey
			}
			fmt.Fprintf(&sb, "%s %s (%s): %d ₽ gross → %d ₽ net\n", check, name, d.BankKey, d.GrossBonus, d.NetBonus)
		}
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) askDeleteConfirmation(chatID int64) {
	msg := tgbotapi.NewMessage(chatID,
		"🗑 Удалить ваши персональные данные? История заявок будет обезличена, но сохранится в статистике.")
	msg.ReplyMarkup = confirmDeleteKeyboard()
	_, _ = b.API.Send(msg)
}

func statusRu(status string) string {
	if status == "confirmed" {
		return "подтверждён ✅"
	}
	return "в ожидании ⏳"
}
