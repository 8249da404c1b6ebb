package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/period"
)

// handleProgressBookCallback processes book selection for /progress
func (b *Bot) handleProgressBookCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, bookID string) {
	if state.Command != "progress" || state.Step != 1 {
		return
	}
	chatID := query.Message.Chat.ID

	book, err := b.library.GetBook(ctx, userKey(query.From.ID), bookID)
	if err != nil {
		b.replyError(chatID, "load book", err)
		state.Step = -1
		return
	}

	state.Data["book_id"] = book.ID
	state.Step = 2

	text := fmt.Sprintf("📚 %s\n\nWhich page are you on now?", book.Title)
	if book.TotalPages > 0 {
		text = fmt.Sprintf("📚 %s\n📖 %s\n\nWhich page are you on now?", book.Title, progressBar(book.ReadPages, book.TotalPages))
	}
	b.reply(chatID, text)
}

// handleGoalTypeCallback processes the goal type buttons of /new_goal
func (b *Bot) handleGoalTypeCallback(query *tgbotapi.CallbackQuery, state *ConversationState, value string) {
	if state.Command != "new_goal" || state.Step != 2 {
		return
	}
	goalType := models.GoalType(value)
	if goalType != models.GoalPages && goalType != models.GoalBooks {
		return
	}

	state.Data["type"] = goalType
	state.Step = 3

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Daily", "goal_period:daily"),
			tgbotapi.NewInlineKeyboardButtonData("🗓 Weekly", "goal_period:weekly"),
			tgbotapi.NewInlineKeyboardButtonData("📆 Monthly", "goal_period:monthly"),
		),
	)
	b.replyWithMarkup(query.Message.Chat.ID, "How often should it reset?", keyboard)
}

// handleGoalPeriodCallback processes the goal period buttons of /new_goal
func (b *Bot) handleGoalPeriodCallback(query *tgbotapi.CallbackQuery, state *ConversationState, value string) {
	if state.Command != "new_goal" || state.Step != 3 {
		return
	}
	p, ok := period.Parse(value)
	if !ok {
		return
	}

	state.Data["period"] = p
	state.Step = 4
	b.reply(query.Message.Chat.ID, fmt.Sprintf("How many %s per %s period?", state.Data["type"], p))
}

// handleLendBookCallback processes book selection for /lend
func (b *Bot) handleLendBookCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, bookID string) {
	if state.Command != "lend" || state.Step != 1 {
		return
	}
	chatID := query.Message.Chat.ID

	book, err := b.library.GetBook(ctx, userKey(query.From.ID), bookID)
	if err != nil {
		b.replyError(chatID, "load book", err)
		state.Step = -1
		return
	}

	state.Data["book_id"] = book.ID
	state.Step = 2
	b.reply(chatID, fmt.Sprintf("👤 Who is borrowing \"%s\"?", book.Title))
}

// handleQuoteBookCallback processes book selection for /quote
func (b *Bot) handleQuoteBookCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, bookID string) {
	if state.Command != "quote" || state.Step != 1 {
		return
	}
	chatID := query.Message.Chat.ID

	book, err := b.library.GetBook(ctx, userKey(query.From.ID), bookID)
	if err != nil {
		b.replyError(chatID, "load book", err)
		state.Step = -1
		return
	}

	state.Data["book_id"] = book.ID
	state.Step = 2
	b.reply(chatID, fmt.Sprintf("✍️ Send the quote from \"%s\":", book.Title))
}

// handleChartCallback draws the reading chart for the chosen period
func (b *Bot) handleChartCallback(ctx context.Context, query *tgbotapi.CallbackQuery, value string) {
	chatID := query.Message.Chat.ID
	p, ok := period.Parse(value)
	if !ok {
		p = models.Monthly
	}

	points, err := b.library.Chart(ctx, userKey(query.From.ID), p)
	if err != nil {
		b.replyError(chatID, "draw chart", err)
		return
	}

	b.logger.Info("Generated chart",
		zap.Int64("chat_id", chatID),
		zap.String("period", string(p)),
		zap.Int("buckets", len(points)),
	)
	b.reply(chatID, formatChart(p, points))
}

// handleReturnLoanCallback marks a loan as returned
func (b *Bot) handleReturnLoanCallback(ctx context.Context, query *tgbotapi.CallbackQuery, loanID string) {
	chatID := query.Message.Chat.ID

	loan, err := b.library.ReturnLoan(ctx, userKey(query.From.ID), loanID)
	if err != nil {
		b.replyError(chatID, "return loan", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("↩️ The book lent to %s is back on the shelf.", loan.BorrowerName))
}
