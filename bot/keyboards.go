package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"referral-flow-bot/models"
)

const (
	btnBanks    = "🏦 Банки"
	btnStatus   = "📊 Мой статус"
	btnFinance  = "💰 Финансы"
	btnDeleteMe = "🗑 Удалить мои данные"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBanks),
			tgbotapi.NewKeyboardButton(btnStatus),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnFinance),
			tgbotapi.NewKeyboardButton(btnDeleteMe),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("📱 Отправить номер телефона"),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func banksKeyboard(banks []models.Bank) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, bank := range banks {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(bank.BankName, "bank:"+bank.BankKey),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func productsKeyboard(bankKey string, products []models.Product) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range products {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.ProductName,
				fmt.Sprintf("prod:%s:%s", bankKey, p.ProductKey)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func variantsKeyboard(bankKey, productKey string, variants []models.Variant) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, v := range variants {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(v.Title,
				fmt.Sprintf("var:%s:%s:%s", bankKey, productKey, v.VariantKey)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Без варианта",
			fmt.Sprintf("var:%s:%s:", bankKey, productKey)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func offersKeyboard(offers []models.Offer) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, o := range offers {
		label := fmt.Sprintf("%s — %d ₽", o.OfferTitle, o.GrossBonus)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("offer:%d", o.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func progressKeyboard(p *models.ReferralProgress) tgbotapi.InlineKeyboardMarkup {
	mark := func(done bool, label string) string {
		if done {
			return "✅ " + label
		}
		return "☑️ " + label
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark(p.CardReceived, "Карта получена"), "progress:received"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark(p.CardActivated, "Карта активирована"), "progress:activated"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark(p.PurchaseMade, "Покупка совершена"), "progress:purchase"),
		),
	)
}

func confirmDeleteKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Да, удалить", "delete:confirm"),
			tgbotapi.NewInlineKeyboardButtonData("Отмена", "delete:cancel"),
		),
	)
}

func pendingAppKeyboard(appID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", fmt.Sprintf("app_approve:%d", appID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("app_reject:%d", appID)),
		),
	)
}
