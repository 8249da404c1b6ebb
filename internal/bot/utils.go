package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/library"
	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

// userKey is the library user id of a Telegram user
func userKey(telegramID int64) string {
	return strconv.FormatInt(telegramID, 10)
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if b.sender == nil {
		return
	}
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyWithMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	b.sendMessage(msg)
}

// replyError tells the user what went wrong without leaking storage details
func (b *Bot) replyError(chatID int64, action string, err error) {
	switch {
	case errors.Is(err, library.ErrValidation), errors.Is(err, library.ErrBookLoaned):
		b.reply(chatID, "❌ "+err.Error())
	case errors.Is(err, storage.ErrNotFound):
		b.reply(chatID, "❌ Not found. It may have been removed.")
	default:
		b.logger.Error("Request failed", zap.String("action", action), zap.Int64("chat_id", chatID), zap.Error(err))
		b.reply(chatID, fmt.Sprintf("Error: failed to %s. Please try again.", action))
	}
}

// SendDigest delivers the daily goal digest to a user's private chat
func (b *Bot) SendDigest(ctx context.Context, userID string, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram user id %q: %w", userID, err)
	}
	if b.sender == nil {
		return nil
	}
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}
	return nil
}

func (b *Bot) setState(userID int64, state *ConversationState) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	b.states[userID] = state
}

func (b *Bot) getState(userID int64) (*ConversationState, bool) {
	b.statesMu.RLock()
	defer b.statesMu.RUnlock()
	state, ok := b.states[userID]
	return state, ok
}

func (b *Bot) clearState(userID int64) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	delete(b.states, userID)
}

// bookKeyboard lays books out two per row with callback data prefix:<book id>
func bookKeyboard(books []models.Book, prefix string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var currentRow []tgbotapi.InlineKeyboardButton
	for i, book := range books {
		button := tgbotapi.NewInlineKeyboardButtonData(book.Title, prefix+":"+book.ID)
		currentRow = append(currentRow, button)

		// Add row when we have 2 buttons or it's the last book
		if len(currentRow) == 2 || i == len(books)-1 {
			rows = append(rows, currentRow)
			currentRow = []tgbotapi.InlineKeyboardButton{}
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
