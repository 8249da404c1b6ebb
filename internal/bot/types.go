package bot

import (
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/library"
	"bookshelf/internal/period"
)

// Sender is the part of the Telegram API the bot talks through
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api          *tgbotapi.BotAPI
	sender       Sender
	library      *library.Service
	allowedUsers map[int64]bool
	states       map[int64]*ConversationState
	statesMu     sync.RWMutex
	logger       *zap.Logger
	display      Display

	announcedMu sync.Mutex
	announced   map[string]time.Time // goal id -> start of the period it was announced in
	unsubscribe func()
}

// Display controls how dates are shown and read back
type Display struct {
	Location *time.Location
	Resolver period.Resolver
	// FormatDate renders a date for the reader. ParseDate reads one back.
	FormatDate func(time.Time) string
	ParseDate  func(string, *time.Location) (time.Time, error)
	Now        func() time.Time
}

// ConversationState tracks the state of multi-step commands
type ConversationState struct {
	Command string
	Step    int
	Data    map[string]interface{}
}
