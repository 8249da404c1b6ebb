package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.reply(message.Chat.ID, "An error occurred while processing your request. Please try again.")
		}
	}()

	userID := message.From.ID
	ctx := context.Background()

	// Check if user is in a conversation
	if state, ok := b.getState(userID); ok {
		if state.Step == -1 || message.IsCommand() {
			// Any command interrupts an ongoing conversation
			b.clearState(userID)
		} else {
			b.handleConversation(ctx, message, state)
			return
		}
	}

	if !message.IsCommand() {
		return
	}

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "books":
		b.handleBooks(ctx, message)
	case "new_book":
		b.handleNewBookStart(message)
	case "progress":
		b.handleProgressStart(ctx, message)
	case "stats":
		b.handleStats(ctx, message)
	case "goals":
		b.handleGoals(ctx, message)
	case "new_goal":
		b.handleNewGoalStart(message)
	case "chart":
		b.handleChartStart(message)
	case "lend":
		b.handleLendStart(ctx, message)
	case "loans":
		b.handleLoans(ctx, message)
	case "quote":
		b.handleQuoteStart(ctx, message)
	case "daily_quote":
		b.handleDailyQuote(ctx, message)
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /start to see available commands.")
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	userID := query.From.ID
	ctx := context.Background()

	// Answer the callback query to remove loading state
	if b.sender != nil {
		if _, err := b.sender.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			b.logger.Debug("Failed to answer callback", zap.Error(err))
		}
	}
	if query.Message == nil {
		return
	}

	data := query.Data
	prefix, value, _ := strings.Cut(data, ":")

	// Stateless buttons
	switch prefix {
	case "chart_period":
		b.handleChartCallback(ctx, query, value)
		return
	case "return_loan":
		b.handleReturnLoanCallback(ctx, query, value)
		return
	}

	state, ok := b.getState(userID)
	if !ok {
		return
	}
	switch prefix {
	case "progress_book":
		b.handleProgressBookCallback(ctx, query, state, value)
	case "goal_type":
		b.handleGoalTypeCallback(query, state, value)
	case "goal_period":
		b.handleGoalPeriodCallback(query, state, value)
	case "lend_book":
		b.handleLendBookCallback(ctx, query, state, value)
	case "quote_book":
		b.handleQuoteBookCallback(ctx, query, state, value)
	}

	// Clean up completed conversations
	if state.Step == -1 {
		b.clearState(userID)
	}
}
