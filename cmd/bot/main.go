package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eg0renkov/bot-sub000/internal/ai"
	"github.com/eg0renkov/bot-sub000/internal/bot"
	"github.com/eg0renkov/bot-sub000/internal/config"
	"github.com/eg0renkov/bot-sub000/internal/database"
	"github.com/eg0renkov/bot-sub000/internal/repository"
	"github.com/eg0renkov/bot-sub000/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DatabaseURI == "" {
		log.Fatal("DATABASE_URI is required")
	}
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// AI assistant is optional: without a key the bot still does reminders
	var aiClient *ai.Client
	if cfg.AIAPIKey != "" {
		aiClient = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		log.Printf("AI client initialized (model: %s)", cfg.AIModel)
	} else {
		log.Println("AI client not configured, assistant replies disabled")
	}

	api, err := bot.NewAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("Failed to create Telegram API: %v", err)
	}

	reminderRepo := repository.NewReminderRepository(db)
	settingsRepo := repository.NewUserSettingsRepository(db)

	sched := scheduler.New(api, reminderRepo, settingsRepo, cfg.CheckInterval, cfg.ReminderWindow)
	go sched.Start(ctx)

	b := bot.New(api, db, aiClient, sched)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	log.Println("Starting bot...")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Bot error: %v", err)
	}
}
