package library

import (
	"context"
	"fmt"
	"strings"

	"bookshelf/internal/models"
	"bookshelf/internal/notify"
	"bookshelf/internal/storage"
)

// AddQuote saves a passage from one of the user's books. A page of zero or less is dropped.
func (s *Service) AddQuote(ctx context.Context, userID, bookID string, in models.QuoteInput) (models.Quote, error) {
	if in.Text == nil || strings.TrimSpace(*in.Text) == "" {
		return models.Quote{}, invalid("quote text is required")
	}
	book, err := s.GetBook(ctx, userID, bookID)
	if err != nil {
		return models.Quote{}, err
	}

	quote := models.Quote{
		ID:        s.newID(),
		UserID:    userID,
		BookID:    bookID,
		Title:     book.Title,
		Text:      strings.TrimSpace(*in.Text),
		CreatedAt: s.now().UTC(),
	}
	if in.Page != nil && *in.Page > 0 {
		quote.Page = models.Int(*in.Page)
	}

	if err := s.store.CreateQuote(ctx, quote); err != nil {
		return models.Quote{}, fmt.Errorf("failed to add quote: %w", err)
	}
	s.publish(ctx, storage.TableQuotes, notify.OpInsert, userID, quote.ID)
	return quote, nil
}

func (s *Service) findQuote(ctx context.Context, userID, quoteID string) (models.Quote, error) {
	quotes, err := s.store.ListQuotes(ctx, models.QuoteQuery{UserID: userID})
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to load quotes: %w", err)
	}
	for _, q := range quotes {
		if q.ID == quoteID {
			return q, nil
		}
	}
	return models.Quote{}, storage.NotFound(storage.TableQuotes, quoteID)
}

// EditQuote changes the text or page of a quote
func (s *Service) EditQuote(ctx context.Context, userID, quoteID string, in models.QuoteInput) (models.Quote, error) {
	quote, err := s.findQuote(ctx, userID, quoteID)
	if err != nil {
		return models.Quote{}, err
	}
	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		if text == "" {
			return models.Quote{}, invalid("quote text is required")
		}
		in.Text = &text
		quote.Text = text
	}
	if in.Page != nil {
		if *in.Page <= 0 {
			return models.Quote{}, invalid("page must be positive")
		}
		quote.Page = models.Int(*in.Page)
	}

	changes := in.Changes()
	if len(changes) == 0 {
		return quote, nil
	}
	if err := s.store.UpdateQuote(ctx, quoteID, changes); err != nil {
		return models.Quote{}, fmt.Errorf("failed to edit quote: %w", err)
	}
	s.publish(ctx, storage.TableQuotes, notify.OpUpdate, userID, quoteID)
	return quote, nil
}

// RemoveQuote deletes a quote
func (s *Service) RemoveQuote(ctx context.Context, userID, quoteID string) error {
	if _, err := s.findQuote(ctx, userID, quoteID); err != nil {
		return err
	}
	if err := s.store.DeleteQuote(ctx, quoteID); err != nil {
		return fmt.Errorf("failed to remove quote: %w", err)
	}
	s.publish(ctx, storage.TableQuotes, notify.OpDelete, userID, quoteID)
	return nil
}

// ListQuotes returns the user's quotes newest first, optionally for one book
func (s *Service) ListQuotes(ctx context.Context, userID, bookID string) ([]models.Quote, error) {
	quotes, err := s.store.ListQuotes(ctx, models.QuoteQuery{UserID: userID, BookID: bookID})
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	return quotes, nil
}

// DailyQuote picks the quote of the day. The pick changes with the day of the
// month and with the set of quotes; ok is false when there are none.
func (s *Service) DailyQuote(ctx context.Context, userID string) (quote models.Quote, ok bool, err error) {
	quotes, err := s.ListQuotes(ctx, userID, "")
	if err != nil {
		return models.Quote{}, false, err
	}
	if len(quotes) == 0 {
		return models.Quote{}, false, nil
	}
	return quotes[DailyIndex(quotes, s.clock().Day())], true, nil
}

// DailyIndex returns the index of the quote to show on day of month
func DailyIndex(quotes []models.Quote, day int) int {
	sum := day
	for _, q := range quotes {
		if q.ID != "" {
			sum += int(q.ID[0])
		}
	}
	if sum < 0 {
		sum = -sum
	}
	return sum % len(quotes)
}

// AddNote attaches a note to one of the user's books
func (s *Service) AddNote(ctx context.Context, userID, bookID string, in models.NoteInput) (models.Note, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" || in.Content == nil || strings.TrimSpace(*in.Content) == "" {
		return models.Note{}, invalid("note title and content are required")
	}
	if _, err := s.GetBook(ctx, userID, bookID); err != nil {
		return models.Note{}, err
	}

	note := models.Note{
		ID:        s.newID(),
		UserID:    userID,
		BookID:    bookID,
		Title:     strings.TrimSpace(*in.Title),
		Content:   strings.TrimSpace(*in.Content),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return models.Note{}, fmt.Errorf("failed to add note: %w", err)
	}
	s.publish(ctx, storage.TableNotes, notify.OpInsert, userID, note.ID)
	return note, nil
}

func (s *Service) getNote(ctx context.Context, userID, noteID string) (models.Note, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return models.Note{}, err
	}
	if err := owned(userID, note.UserID, storage.TableNotes, noteID); err != nil {
		return models.Note{}, err
	}
	return note, nil
}

// EditNote changes the title or content of a note
func (s *Service) EditNote(ctx context.Context, userID, noteID string, in models.NoteInput) (models.Note, error) {
	note, err := s.getNote(ctx, userID, noteID)
	if err != nil {
		return models.Note{}, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return models.Note{}, invalid("note title is required")
		}
		in.Title = &title
		note.Title = title
	}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return models.Note{}, invalid("note content is required")
		}
		in.Content = &content
		note.Content = content
	}

	changes := in.Changes()
	if len(changes) == 0 {
		return note, nil
	}
	if err := s.store.UpdateNote(ctx, noteID, changes); err != nil {
		return models.Note{}, fmt.Errorf("failed to edit note: %w", err)
	}
	s.publish(ctx, storage.TableNotes, notify.OpUpdate, userID, noteID)
	return note, nil
}

// RemoveNote deletes a note
func (s *Service) RemoveNote(ctx context.Context, userID, noteID string) error {
	if _, err := s.getNote(ctx, userID, noteID); err != nil {
		return err
	}
	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		return fmt.Errorf("failed to remove note: %w", err)
	}
	s.publish(ctx, storage.TableNotes, notify.OpDelete, userID, noteID)
	return nil
}

// ListNotes returns a book's notes newest first
func (s *Service) ListNotes(ctx context.Context, userID, bookID string) ([]models.Note, error) {
	if _, err := s.GetBook(ctx, userID, bookID); err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}
