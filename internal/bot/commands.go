package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bookshelf/internal/models"
)

// handleStart shows welcome message and available commands
func (b *Bot) handleStart(message *tgbotapi.Message) {
	text := `Welcome to your Bookshelf! 📚

Available commands:
/books - List your books
/new_book - Add a book
/progress - Record the page you are on
/stats - Shelf statistics
/goals - Reading goals and their progress
/new_goal - Set a reading goal
/chart - Pages read over time
/lend - Lend a book to someone
/loans - Books currently lent out
/quote - Save a quote from a book
/daily_quote - Quote of the day`

	b.reply(message.Chat.ID, text)
}

// handleBooks lists the user's shelf
func (b *Bot) handleBooks(ctx context.Context, message *tgbotapi.Message) {
	books, err := b.library.ListBooks(ctx, userKey(message.From.ID), "")
	if err != nil {
		b.replyError(message.Chat.ID, "list books", err)
		return
	}
	if len(books) == 0 {
		b.reply(message.Chat.ID, "Your shelf is empty. Add a book with /new_book")
		return
	}
	b.reply(message.Chat.ID, formatBooks(books))
}

// handleNewBookStart initiates the new book conversation
func (b *Bot) handleNewBookStart(message *tgbotapi.Message) {
	b.setState(message.From.ID, &ConversationState{
		Command: "new_book",
		Step:    1,
		Data:    make(map[string]interface{}),
	})
	b.reply(message.Chat.ID, "Please enter the book title:")
}

// handleProgressStart asks which book the progress is for
func (b *Bot) handleProgressStart(ctx context.Context, message *tgbotapi.Message) {
	books, err := b.library.ListBooks(ctx, userKey(message.From.ID), "")
	if err != nil {
		b.replyError(message.Chat.ID, "list books", err)
		return
	}

	var open []models.Book
	for _, book := range books {
		if book.Status != models.StatusCompleted {
			open = append(open, book)
		}
	}
	if len(open) == 0 {
		b.reply(message.Chat.ID, "No books to track. Add one with /new_book")
		return
	}

	b.setState(message.From.ID, &ConversationState{
		Command: "progress",
		Step:    1,
		Data:    make(map[string]interface{}),
	})
	b.replyWithMarkup(message.Chat.ID, "📖 Which book are you reading?", bookKeyboard(open, "progress_book"))
}

// handleStats shows counts of the user's books
func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) {
	stats, err := b.library.Stats(ctx, userKey(message.From.ID))
	if err != nil {
		b.replyError(message.Chat.ID, "load statistics", err)
		return
	}
	text := fmt.Sprintf("📊 Shelf statistics\n\n📚 Books: %d\n✅ Completed: %d\n📕 Unread: %d",
		stats.TotalBooks, stats.CompletedBooks, stats.UnreadBooks)
	b.reply(message.Chat.ID, text)
}

// handleGoals shows active goals with their current progress
func (b *Bot) handleGoals(ctx context.Context, message *tgbotapi.Message) {
	goals, err := b.library.ListGoals(ctx, userKey(message.From.ID), true)
	if err != nil {
		b.replyError(message.Chat.ID, "load goals", err)
		return
	}
	if len(goals) == 0 {
		b.reply(message.Chat.ID, "No active goals. Set one with /new_goal")
		return
	}
	b.reply(message.Chat.ID, formatGoals(goals))
}

// handleNewGoalStart initiates the new goal conversation
func (b *Bot) handleNewGoalStart(message *tgbotapi.Message) {
	b.setState(message.From.ID, &ConversationState{
		Command: "new_goal",
		Step:    1,
		Data:    make(map[string]interface{}),
	})
	b.reply(message.Chat.ID, "🎯 Please enter a title for the goal:")
}

// handleChartStart asks for the chart period
func (b *Bot) handleChartStart(message *tgbotapi.Message) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Daily", "chart_period:daily"),
			tgbotapi.NewInlineKeyboardButtonData("🗓 Weekly", "chart_period:weekly"),
			tgbotapi.NewInlineKeyboardButtonData("📆 Monthly", "chart_period:monthly"),
		),
	)
	b.replyWithMarkup(message.Chat.ID, "📈 Select chart period:", keyboard)
}

// handleLendStart asks which book is being lent
func (b *Bot) handleLendStart(ctx context.Context, message *tgbotapi.Message) {
	books, err := b.library.ListBooks(ctx, userKey(message.From.ID), "")
	if err != nil {
		b.replyError(message.Chat.ID, "list books", err)
		return
	}

	var available []models.Book
	for _, book := range books {
		if !book.IsLoaned {
			available = append(available, book)
		}
	}
	if len(available) == 0 {
		b.reply(message.Chat.ID, "No books available to lend.")
		return
	}

	b.setState(message.From.ID, &ConversationState{
		Command: "lend",
		Step:    1,
		Data:    make(map[string]interface{}),
	})
	b.replyWithMarkup(message.Chat.ID, "🤝 Which book are you lending?", bookKeyboard(available, "lend_book"))
}

// handleLoans lists books currently lent out, each with a return button
func (b *Bot) handleLoans(ctx context.Context, message *tgbotapi.Message) {
	loans, err := b.library.ListLoans(ctx, userKey(message.From.ID), true)
	if err != nil {
		b.replyError(message.Chat.ID, "list loans", err)
		return
	}
	if len(loans) == 0 {
		b.reply(message.Chat.ID, "No books are lent out.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, loan := range loans {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Returned: "+loan.BookTitle, "return_loan:"+loan.ID),
		))
	}
	b.replyWithMarkup(message.Chat.ID, formatLoans(loans, b.display.FormatDate), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// handleQuoteStart asks which book the quote is from
func (b *Bot) handleQuoteStart(ctx context.Context, message *tgbotapi.Message) {
	books, err := b.library.ListBooks(ctx, userKey(message.From.ID), "")
	if err != nil {
		b.replyError(message.Chat.ID, "list books", err)
		return
	}
	if len(books) == 0 {
		b.reply(message.Chat.ID, "Your shelf is empty. Add a book with /new_book")
		return
	}

	b.setState(message.From.ID, &ConversationState{
		Command: "quote",
		Step:    1,
		Data:    make(map[string]interface{}),
	})
	b.replyWithMarkup(message.Chat.ID, "✍️ Which book is the quote from?", bookKeyboard(books, "quote_book"))
}

// handleDailyQuote shows the quote of the day
func (b *Bot) handleDailyQuote(ctx context.Context, message *tgbotapi.Message) {
	quote, ok, err := b.library.DailyQuote(ctx, userKey(message.From.ID))
	if err != nil {
		b.replyError(message.Chat.ID, "load quotes", err)
		return
	}
	if !ok {
		b.reply(message.Chat.ID, "No quotes saved yet. Add one with /quote")
		return
	}
	b.reply(message.Chat.ID, formatQuote(quote))
}
