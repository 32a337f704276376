package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_qualification_bot/internal/app"
	"lead_qualification_bot/internal/domain/participant"
	"lead_qualification_bot/internal/infra/config"
	idb "lead_qualification_bot/internal/infra/database"
	"lead_qualification_bot/internal/infra/logger"
	"lead_qualification_bot/internal/infra/scheduler"
	"lead_qualification_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Lead Qualification Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s, Manager ID: %d", cfg.LogLevel, cfg.Environment, cfg.ManagerTelegramID)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Initialize Repository
	participantRepo := idb.NewPostgresParticipantRepository(db)
	log.Info("Participant repository initialized.")

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := log.WithField("component", "telebot")
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.WithError(err).Error("Unhandled bot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.Fatalf("FATAL: Could not create Telegram bot: %v", err)
	}
	telegramClient := telegram.NewTelebotAdapter(bot)

	// Initialize Reminder Scheduler
	reminderDelays := map[participant.ReminderTier]time.Duration{
		participant.ReminderTier10Min:   cfg.ReminderDelayTier1,
		participant.ReminderTier2Hours:  cfg.ReminderDelayTier2,
		participant.ReminderTier24Hours: cfg.ReminderDelayTier3,
	}
	reminderScheduler := scheduler.NewReminderScheduler(reminderDelays, log.WithField("component", "reminder_scheduler"))
	log.Info("Reminder scheduler initialized.")

	// Initialize Services
	sessions := app.NewSessionRegistry()
	leadService := app.NewLeadService(participantRepo, telegramClient, cfg.ManagerTelegramID, log.WithField("component", "lead_service"))
	surveyService := app.NewSurveyService(
		participantRepo,
		sessions,
		reminderScheduler,
		telegramClient,
		leadService,
		log.WithField("component", "survey_service"),
		cfg.RestartDiscardsProgress,
	)
	reminderScheduler.SetDispatcher(surveyService)
	log.Info("Survey and lead services initialized.")

	// Re-arm reminder task sets for sessions that were in flight before the
	// last shutdown.
	recoveryJob := scheduler.NewRecoveryJob(
		participantRepo,
		reminderScheduler,
		log.WithField("component", "reminder_recovery"),
		cfg.CronSpecReminderRecovery,
	)
	recoveryJob.Start()

	// Register Handlers
	ctx := context.Background()
	telegram.RegisterBotCommands(ctx, bot, cfg, surveyService, log.WithField("component", "handlers"))
	telegram.RegisterSurveyHandlers(ctx, bot, surveyService, leadService, log.WithField("component", "handlers"))
	log.Info("Bot handlers registered.")

	log.Info("Application setup complete. Bot and scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down application...")
	recoveryJob.Stop()
	bot.Stop()
	// db.Close() is handled by defer
	log.Info("Application shut down gracefully.")
}
