package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/library"
	"bookshelf/internal/storage"
)

// NewBot creates a new Telegram bot
func NewBot(token string, lib *library.Service, allowedUserIDs []int64, display Display, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	b := newBot(api, lib, allowedUserIDs, display, logger)
	b.api = api
	return b, nil
}

// newBot wires a bot around any sender, so tests can record what would be sent
func newBot(sender Sender, lib *library.Service, allowedUserIDs []int64, display Display, logger *zap.Logger) *Bot {
	allowedUsers := make(map[int64]bool)
	for _, id := range allowedUserIDs {
		allowedUsers[id] = true
	}

	if display.Location == nil {
		display.Location = time.UTC
	}
	if display.FormatDate == nil {
		display.FormatDate = func(t time.Time) string { return t.Format("2006-01-02") }
	}
	if display.ParseDate == nil {
		display.ParseDate = func(s string, loc *time.Location) (time.Time, error) {
			return time.ParseInLocation("2006-01-02", s, loc)
		}
	}
	if display.Now == nil {
		display.Now = time.Now
	}

	b := &Bot{
		sender:       sender,
		library:      lib,
		allowedUsers: allowedUsers,
		states:       make(map[int64]*ConversationState),
		logger:       logger,
		display:      display,
		announced:    make(map[string]time.Time),
	}
	b.unsubscribe = lib.Hub().Subscribe(storage.TableReadingLogs, b.onReadingLogged)
	return b
}

// GetAPI returns the bot API
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}
