package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bookshelf/internal/jalali"
	"bookshelf/internal/models"
	"bookshelf/internal/period"
)

// handleConversation processes multi-step conversations
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	userID := message.From.ID

	switch state.Command {
	case "new_book":
		b.handleNewBookConversation(ctx, message, state)
	case "progress":
		b.handleProgressConversation(ctx, message, state)
	case "new_goal":
		b.handleNewGoalConversation(ctx, message, state)
	case "lend":
		b.handleLendConversation(ctx, message, state)
	case "quote":
		b.handleQuoteConversation(ctx, message, state)
	}

	// Clean up completed conversations
	if state.Step == -1 {
		b.clearState(userID)
	}
}

// parseNumber reads a non-negative number typed with Latin, Persian or Arabic digits
func parseNumber(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(jalali.LatinDigits(text)))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func isSkip(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "skip", "-":
		return true
	}
	return false
}

// handleNewBookConversation asks for title, author and total pages
func (b *Bot) handleNewBookConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	text := strings.TrimSpace(message.Text)

	switch state.Step {
	case 1: // Waiting for title
		if text == "" {
			b.reply(message.Chat.ID, "The title cannot be empty. Please enter the book title:")
			return
		}
		state.Data["title"] = text
		state.Step = 2
		b.reply(message.Chat.ID, "✍️ Who is the author?")

	case 2: // Waiting for author
		if text == "" {
			b.reply(message.Chat.ID, "The author cannot be empty. Who is the author?")
			return
		}
		state.Data["author"] = text
		state.Step = 3
		b.reply(message.Chat.ID, "📄 How many pages does it have? Send 'skip' if you don't know.")

	case 3: // Waiting for total pages
		in := models.BookInput{
			Title:  models.String(state.Data["title"].(string)),
			Author: models.String(state.Data["author"].(string)),
		}
		if !isSkip(text) {
			pages, ok := parseNumber(text)
			if !ok {
				b.reply(message.Chat.ID, "❌ Please send a number of pages, or 'skip'.")
				return
			}
			in.TotalPages = &pages
		}

		book, err := b.library.AddBook(ctx, userKey(message.From.ID), in)
		if err != nil {
			b.replyError(message.Chat.ID, "add book", err)
		} else {
			b.reply(message.Chat.ID, fmt.Sprintf("✅ Book added!\n\n📚 %s\n✍️ %s", book.Title, book.Author))
		}
		state.Step = -1 // Mark conversation as complete
	}
}

// handleProgressConversation records the page typed after a book was picked
func (b *Bot) handleProgressConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	if state.Step != 2 {
		return
	}

	page, ok := parseNumber(message.Text)
	if !ok {
		b.reply(message.Chat.ID, "❌ Please send the page number you are on.")
		return
	}

	bookID := state.Data["book_id"].(string)
	book, err := b.library.UpdateProgress(ctx, userKey(message.From.ID), bookID, page)
	if err != nil {
		b.replyError(message.Chat.ID, "update progress", err)
		state.Step = -1
		return
	}

	b.reply(message.Chat.ID, fmt.Sprintf("✅ Progress saved!\n\n📚 %s\n📖 %s",
		book.Title, progressBar(book.ReadPages, book.TotalPages)))
	state.Step = -1
}

// handleNewGoalConversation handles the free text steps of /new_goal.
// Type and period are picked with buttons in between.
func (b *Bot) handleNewGoalConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	text := strings.TrimSpace(message.Text)

	switch state.Step {
	case 1: // Waiting for title
		if text == "" {
			b.reply(message.Chat.ID, "The title cannot be empty. Please enter a title for the goal:")
			return
		}
		state.Data["title"] = text
		state.Step = 2

		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📄 Pages", "goal_type:pages"),
				tgbotapi.NewInlineKeyboardButtonData("📚 Books", "goal_type:books"),
			),
		)
		b.replyWithMarkup(message.Chat.ID, "What should the goal count?", keyboard)

	case 4: // Waiting for target
		target, ok := parseNumber(text)
		if !ok || target == 0 {
			b.reply(message.Chat.ID, "❌ Please send a positive number.")
			return
		}
		state.Data["target"] = target
		state.Step = 5
		b.reply(message.Chat.ID, fmt.Sprintf("📅 Until when? Send a date like %s, or 'skip' for one year.",
			b.display.FormatDate(b.display.Now().In(b.display.Location).AddDate(0, 3, 0))))

	case 5: // Waiting for end date
		now := b.display.Now().In(b.display.Location)
		start := period.StartOfDay(now)
		end := start.AddDate(1, 0, 0)
		if !isSkip(text) {
			parsed, err := b.display.ParseDate(text, b.display.Location)
			if err != nil {
				b.reply(message.Chat.ID, "❌ Invalid date. Please try again or send 'skip'.")
				return
			}
			end = parsed
		}

		goalType := state.Data["type"].(models.GoalType)
		goalPeriod := state.Data["period"].(models.Period)
		in := models.GoalInput{
			Title:       models.String(state.Data["title"].(string)),
			Type:        &goalType,
			Period:      &goalPeriod,
			TargetValue: models.Int(state.Data["target"].(int)),
			StartDate:   &start,
			EndDate:     &end,
		}
		goal, err := b.library.CreateGoal(ctx, userKey(message.From.ID), in)
		if err != nil {
			b.replyError(message.Chat.ID, "create goal", err)
		} else {
			b.reply(message.Chat.ID, fmt.Sprintf("🎯 Goal set!\n\n%s: %d %s %s\nUntil %s",
				goal.Title, goal.TargetValue, goal.Type, goal.Period, b.display.FormatDate(goal.EndDate.In(b.display.Location))))
		}
		state.Step = -1
	}
}

// handleLendConversation records the borrower typed after a book was picked
func (b *Bot) handleLendConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	if state.Step != 2 {
		return
	}

	borrower := strings.TrimSpace(message.Text)
	if borrower == "" {
		b.reply(message.Chat.ID, "Please enter the borrower's name:")
		return
	}

	bookID := state.Data["book_id"].(string)
	loan, err := b.library.LendBook(ctx, userKey(message.From.ID), bookID, borrower, time.Time{}, "")
	if err != nil {
		b.replyError(message.Chat.ID, "lend book", err)
	} else {
		b.reply(message.Chat.ID, fmt.Sprintf("🤝 Lent \"%s\" to %s on %s",
			loan.BookTitle, loan.BorrowerName, b.display.FormatDate(loan.BorrowedAt.In(b.display.Location))))
	}
	state.Step = -1
}

// handleQuoteConversation saves the quote text, then an optional page
func (b *Bot) handleQuoteConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	text := strings.TrimSpace(message.Text)

	switch state.Step {
	case 2: // Waiting for quote text
		if text == "" {
			b.reply(message.Chat.ID, "Please send the quote text:")
			return
		}
		state.Data["text"] = text
		state.Step = 3
		b.reply(message.Chat.ID, "📄 Which page is it on? Send 'skip' to leave it out.")

	case 3: // Waiting for page
		in := models.QuoteInput{Text: models.String(state.Data["text"].(string))}
		if !isSkip(text) {
			page, ok := parseNumber(text)
			if !ok {
				b.reply(message.Chat.ID, "❌ Please send a page number, or 'skip'.")
				return
			}
			in.Page = &page
		}

		bookID := state.Data["book_id"].(string)
		quote, err := b.library.AddQuote(ctx, userKey(message.From.ID), bookID, in)
		if err != nil {
			b.replyError(message.Chat.ID, "save quote", err)
		} else {
			b.reply(message.Chat.ID, "✅ Quote saved!\n\n"+formatQuote(quote))
		}
		state.Step = -1
	}
}
