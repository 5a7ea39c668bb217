package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"referral-flow-bot/models"
	"referral-flow-bot/services"
)

func parentTypeOf(s string) models.OfferParentType {
	if s == "variant" {
		return models.OfferParentVariant
	}
	return models.OfferParentProduct
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	// Ack first so the client stops the spinner even if handling is slow.
	_, _ = b.API.Request(tgbotapi.NewCallback(cb.ID, ""))

	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	parts := strings.Split(cb.Data, ":")

	switch parts[0] {
	case "bank":
		if len(parts) == 2 {
			b.showProducts(chatID, parts[1])
		}
	case "prod":
		if len(parts) == 3 {
			b.showVariantsOrOffers(chatID, parts[1], parts[2])
		}
	case "var":
		if len(parts) == 4 {
			if parts[3] == "" {
				b.showOffers(chatID, parts[1], "product", parts[2])
			} else {
				b.showOffers(chatID, parts[1], "variant", parts[3])
			}
		}
	case "offer":
		if len(parts) == 2 {
			b.handleOfferSelected(chatID, cb.From.ID, parts[1])
		}
	case "progress":
		if len(parts) == 2 {
			b.handleProgressUpdate(chatID, cb.From.ID, parts[1])
		}
	case "delete":
		if len(parts) == 2 {
			b.handleDeleteDecision(chatID, cb.From.ID, parts[1])
		}
	case "app_approve", "app_reject":
		if len(parts) == 2 {
			b.handleApplicationDecision(chatID, cb.From.ID, parts[0], parts[1])
		}
	}
}

// handleOfferSelected records the enrollment and hands out the tracked
// link. Link building never hard-fails on the shortener: worst case the
// user receives the long URL.
func (b *Bot) handleOfferSelected(chatID, userID int64, rawID string) {
	offerID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return
	}

	offer, err := b.Catalog.GetOffer(offerID)
	if err != nil {
		b.reply(chatID, supportFallback)
		return
	}

	var variantKey *string
	if offer.ParentType == models.OfferParentVariant {
		variantKey = &offer.ParentKey
	}

	app, err := b.Applications.Create(userID, offerID, variantKey)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			b.reply(chatID, "Это предложение больше не доступно.")
			return
		}
		log.Printf("application create failed for %d: %v", userID, err)
		b.reply(chatID, supportFallback)
		return
	}

	if err := b.Calc.Recalculate(userID); err != nil {
		log.Printf("recalc failed for %d: %v", userID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	link, err := b.Links.BuildLink(ctx, app.BankKey, app.ProductKey, app.VariantKey, true)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			b.reply(chatID, "Ссылка для этого предложения ещё не настроена, обратитесь в поддержку.")
			return
		}
		log.Printf("build link failed for %d: %v", userID, err)
		b.reply(chatID, supportFallback)
		return
	}

	text := fmt.Sprintf(
		"✅ Заявка создана!\n\n🎁 %s\n💰 Бонус: %d ₽\n📋 Условия: %s\n\n🔗 Ваша ссылка:\n%s",
		offer.OfferTitle, offer.GrossBonus, offer.OfferConditions, link,
	)
	b.reply(chatID, text)
}

func (b *Bot) handleProgressUpdate(chatID, userID int64, flag string) {
	now := time.Now().UTC()
	var err error
	switch flag {
	case "received":
		err = b.Progress.SetCardReceived(userID, now)
	case "activated":
		err = b.Progress.SetCardActivated(userID, now)
	case "purchase":
		err = b.Progress.SetPurchaseMade(userID, now, nil)
	default:
		return
	}
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			b.reply(chatID, "Сначала пройдите регистрацию: /start")
			return
		}
		log.Printf("progress update failed for %d: %v", userID, err)
		b.reply(chatID, supportFallback)
		return
	}
	b.reply(chatID, "✅ Статус обновлён, бонусы пересчитаны.")
	b.showStatus(chatID)
}

func (b *Bot) handleDeleteDecision(chatID, userID int64, decision string) {
	if decision != "confirm" {
		b.reply(chatID, "Отменено.")
		return
	}
	if err := b.Identity.Anonymize(userID); err != nil {
		log.Printf("anonymize failed for %d: %v", userID, err)
		b.reply(chatID, supportFallback)
		return
	}
	b.resetState(chatID)
	b.reply(chatID, "🗑 Ваши персональные данные удалены.")
}
