package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"referral-flow-bot/bot"
	"referral-flow-bot/config"
	"referral-flow-bot/handlers"
	"referral-flow-bot/models"
	"referral-flow-bot/services"
	"referral-flow-bot/utils"
	"referral-flow-bot/workers"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := config.MustLoad()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.ReferralProgress{},
		&models.FinancialData{},
		&models.Bank{},
		&models.Product{},
		&models.Variant{},
		&models.Offer{},
		&models.ReferralLink{},
		&models.Application{},
		&models.ApplicationBonus{},
		&models.ReminderLog{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	cipher, err := utils.NewPhoneCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("failed to init phone cipher:", err)
	}

	r2Enabled, err := utils.InitR2(cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2AccessSecret, cfg.R2Bucket, cfg.CDNBaseURL)
	if err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	identityService := services.NewIdentityService(db, cipher)
	catalogService := services.NewCatalogService(db)
	linkService := services.NewLinkService(db, utils.NewShortener(cfg.ShortenerURL))
	applicationService := services.NewApplicationService(db)
	bonusCalculator := services.NewBonusCalculator(db)
	progressService := services.NewProgressService(db, bonusCalculator)
	reportService := services.NewReportService(db)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal("failed to create bot:", err)
	}

	tgBot := bot.New(api, cfg, db,
		identityService, catalogService, linkService,
		applicationService, progressService, bonusCalculator, reportService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go tgBot.Run(ctx)

	reminderWorker := workers.NewReminderWorker(db, reportService, tgBot, 7)
	go reminderWorker.Run(ctx, 6*time.Hour)

	exporter := services.NewReportExporter(reportService, tgBot, cfg.AdminIDs, r2Enabled)
	sched, err := services.StartWeeklyReportScheduler(exporter)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	defer func() { _ = sched.Shutdown() }()

	app := fiber.New(fiber.Config{})
	handlers.SetupAnalyticsRoutes(app, cfg.AdminAPIToken, &handlers.AnalyticsHandler{
		Reports:      reportService,
		Applications: applicationService,
		Calc:         bonusCalculator,
		Identity:     identityService,
	})
	handlers.SetupCatalogRoutes(app, cfg.AdminAPIToken, &handlers.CatalogHandler{
		Catalog: catalogService,
		Links:   linkService,
	})

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Admin API running on %s", cfg.ListenAddr)
	log.Println("✅ Bot update loop running")
	log.Println("✅ Reminder worker running (every 6h)")

	<-ctx.Done()
	log.Println("Shutting down...")
	_ = app.Shutdown()
}
