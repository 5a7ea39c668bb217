package bot

import (
	"context"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"referral-flow-bot/config"
	"referral-flow-bot/services"
)

// Onboarding steps for the conversational flow. State lives in memory only;
// a restart simply restarts the conversation, the ledger is untouched.
type step int

const (
	stepNone step = iota
	stepAwaitName
	stepAwaitPhone
)

type chatState struct {
	Step          step
	TrafficSource string
}

// Bot wraps the long-poll loop and keeps the per-chat conversational state.
// All business rules live in the injected services; handlers only translate
// between chat updates and service calls.
type Bot struct {
	API          *tgbotapi.BotAPI
	Cfg          *config.Config
	DB           *gorm.DB
	Identity     *services.IdentityService
	Catalog      *services.CatalogService
	Links        *services.LinkService
	Applications *services.ApplicationService
	Progress     *services.ProgressService
	Calc         *services.BonusCalculator
	Reports      *services.ReportService

	mu     sync.Mutex
	states map[int64]*chatState
}

func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	db *gorm.DB,
	identity *services.IdentityService,
	catalog *services.CatalogService,
	links *services.LinkService,
	applications *services.ApplicationService,
	progress *services.ProgressService,
	calc *services.BonusCalculator,
	reports *services.ReportService,
) *Bot {
	return &Bot{
		API:          api,
		Cfg:          cfg,
		DB:           db,
		Identity:     identity,
		Catalog:      catalog,
		Links:        links,
		Applications: applications,
		Progress:     progress,
		Calc:         calc,
		Reports:      reports,
		states:       make(map[int64]*chatState),
	}
}

// Run processes updates until the context is cancelled. A panic in one
// handler is recovered so a single bad update never kills the loop.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.API.GetUpdatesChan(u)

	log.Printf("authorized as @%s", b.API.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			log.Println("bot update loop stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(upd)
		}
	}
}

func (b *Bot) handleUpdate(upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered from handler panic: %v", r)
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Chat.IsPrivate():
		b.handleMessage(upd.Message)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.Cfg.AdminIDs[userID]
}

// Notify implements services.Notifier.
func (b *Bot) Notify(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.API.Send(msg)
	return err
}

// SendDocument implements services.Notifier.
func (b *Bot) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	_, err := b.API.Send(doc)
	return err
}

func (b *Bot) state(chatID int64) *chatState {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[chatID]
	if !ok {
		st = &chatState{}
		b.states[chatID] = st
	}
	return st
}

func (b *Bot) resetState(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, chatID)
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.Notify(chatID, text); err != nil {
		log.Printf("send failed for chat %d: %v", chatID, err)
	}
}
