package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookshelf/internal/api"
	"bookshelf/internal/bot"
	"bookshelf/internal/config"
	"bookshelf/internal/library"
	"bookshelf/internal/scheduler"
	"bookshelf/internal/storage"
)

// App represents the application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	db        storage.Storage
	library   *library.Service
	bot       *bot.Bot
	scheduler *scheduler.Scheduler
	server    *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	envErr := godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if envErr != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	app := &App{config: cfg, logger: logger}
	logger.Info("Starting Bookshelf Bot...")

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.library = NewLibrary(app.db, cfg.Display, logger)

	if err := app.initBot(); err != nil {
		return nil, err
	}
	app.initScheduler()
	app.initHTTPServer()

	return app, nil
}

// initDatabase initializes the database connection
func (a *App) initDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := OpenStorage(ctx, a.config.Storage, a.logger)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.library, a.config.AllowedUserIDs, BotDisplay(a.config.Display), a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created successfully", zap.Int64s("allowed_users", a.config.AllowedUserIDs))

	a.bot = telegramBot
	return nil
}

func (a *App) initScheduler() {
	users := make([]string, 0, len(a.config.AllowedUserIDs))
	for _, id := range a.config.AllowedUserIDs {
		users = append(users, strconv.FormatInt(id, 10))
	}
	a.scheduler = scheduler.New(a.library, a.bot, users, a.config.DigestHour, a.config.Display.Location, a.logger)
}

// initHTTPServer initializes the HTTP server for the Mini App API, health checks and webhook
func (a *App) initHTTPServer() {
	if a.config.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Polling mode is used for local development, so the Mini App API trusts the user header there
	auth := api.NewAuthenticator(a.config.TelegramToken, a.config.AllowedUserIDs, !a.config.WebhookMode, a.logger)

	var webhook func(tgbotapi.Update)
	if a.config.WebhookMode {
		webhook = a.bot.HandleWebhookUpdate
	}
	server := api.NewServer(a.library, auth, webhook, a.logger)

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start HTTP server in background
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := a.scheduler.Start(); err != nil {
		return err
	}

	// Start bot in appropriate mode
	if a.config.WebhookMode {
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		a.logger.Info("Webhook configured. Bot will receive updates via HTTP endpoint /telegram-webhook")
	} else {
		// Polling mode: actively poll Telegram servers
		go func() {
			a.logger.Info("Starting bot in POLLING mode...")
			if err := a.bot.Start(); err != nil {
				a.logger.Fatal("Failed to start bot", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	<-sigChan

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	defer a.logger.Sync()

	a.scheduler.Stop()
	a.bot.Stop()

	// Shutdown HTTP server gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	// Close database
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}
