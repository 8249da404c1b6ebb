package library

import (
	"context"
	"fmt"
	"strings"

	"bookshelf/internal/models"
	"bookshelf/internal/notify"
	"bookshelf/internal/storage"

	"go.uber.org/zap"
)

func validateBook(b models.Book) error {
	if strings.TrimSpace(b.Title) == "" {
		return invalid("title is required")
	}
	if strings.TrimSpace(b.Author) == "" {
		return invalid("author is required")
	}
	if !b.Status.Valid() {
		return invalid("unknown status %q", b.Status)
	}
	if b.TotalPages < 0 || b.ReadPages < 0 {
		return invalid("page counts cannot be negative")
	}
	if b.Status == models.StatusReading {
		if b.TotalPages == 0 || b.StartedDate == nil {
			return invalid("total pages and started date are required while reading")
		}
		if b.ReadPages > b.TotalPages {
			return invalid("read pages cannot exceed total pages")
		}
	}
	return nil
}

// AddBook puts a new book on the user's shelf. Status defaults to unread and
// read pages are only kept for books being read.
func (s *Service) AddBook(ctx context.Context, userID string, in models.BookInput) (models.Book, error) {
	book := models.Book{
		ID:        s.newID(),
		UserID:    userID,
		Status:    models.StatusUnread,
		CreatedAt: s.now().UTC(),
	}
	in.ApplyTo(&book)
	book.Title = strings.TrimSpace(book.Title)
	book.Author = strings.TrimSpace(book.Author)
	if book.Status != models.StatusReading {
		book.ReadPages = 0
	}

	if err := validateBook(book); err != nil {
		return models.Book{}, err
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		return models.Book{}, fmt.Errorf("failed to add book: %w", err)
	}

	s.logger.Info("Book added", zap.String("user_id", userID), zap.String("book_id", book.ID))
	s.publish(ctx, storage.TableBooks, notify.OpInsert, userID, book.ID)
	return book, nil
}

// GetBook returns one of the user's books
func (s *Service) GetBook(ctx context.Context, userID, bookID string) (models.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return models.Book{}, err
	}
	if err := owned(userID, book.UserID, storage.TableBooks, bookID); err != nil {
		return models.Book{}, err
	}
	return book, nil
}

// ListBooks returns the user's books newest first. An empty status returns every book.
func (s *Service) ListBooks(ctx context.Context, userID string, status models.BookStatus) ([]models.Book, error) {
	books, err := s.store.ListBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	if status == "" {
		return books, nil
	}

	filtered := make([]models.Book, 0, len(books))
	for _, b := range books {
		if b.Status == status {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// EditBook applies a partial edit. When the book is being read and its read
// pages grow, the difference is appended to the reading log.
func (s *Service) EditBook(ctx context.Context, userID, bookID string, in models.BookInput) (models.Book, error) {
	current, err := s.GetBook(ctx, userID, bookID)
	if err != nil {
		return models.Book{}, err
	}

	changes := in.Changes()
	if len(changes) == 0 {
		return current, nil
	}

	updated := current
	in.ApplyTo(&updated)
	if err := validateBook(updated); err != nil {
		return models.Book{}, err
	}

	if err := s.store.UpdateBook(ctx, bookID, changes); err != nil {
		return models.Book{}, fmt.Errorf("failed to edit book: %w", err)
	}
	s.publish(ctx, storage.TableBooks, notify.OpUpdate, userID, bookID)

	if updated.Status == models.StatusReading {
		s.logPages(ctx, updated, updated.ReadPages-current.ReadPages)
	}
	return updated, nil
}

// UpdateProgress records that the user is on currentPage of a book. The book
// moves to reading, and pages gained over the stored read pages are logged.
// Going backwards is allowed but never logged.
func (s *Service) UpdateProgress(ctx context.Context, userID, bookID string, currentPage int) (models.Book, error) {
	current, err := s.GetBook(ctx, userID, bookID)
	if err != nil {
		return models.Book{}, err
	}
	if currentPage < 0 {
		return models.Book{}, invalid("current page cannot be negative")
	}
	if current.TotalPages > 0 && currentPage > current.TotalPages {
		return models.Book{}, invalid("current page %d is beyond the last page %d", currentPage, current.TotalPages)
	}

	in := models.BookInput{ReadPages: models.Int(currentPage)}
	if current.Status != models.StatusReading {
		status := models.StatusReading
		in.Status = &status
	}
	if current.StartedDate == nil {
		started := s.now()
		in.StartedDate = &started
	}

	updated := current
	in.ApplyTo(&updated)
	if updated.TotalPages == 0 {
		return models.Book{}, invalid("set the total pages before tracking progress")
	}

	if err := s.store.UpdateBook(ctx, bookID, in.Changes()); err != nil {
		return models.Book{}, fmt.Errorf("failed to update progress: %w", err)
	}
	s.publish(ctx, storage.TableBooks, notify.OpUpdate, userID, bookID)

	s.logPages(ctx, updated, currentPage-current.ReadPages)
	return updated, nil
}

// logPages appends a reading log entry for a positive page gain. The book is
// already saved at this point, so a failed log write is reported but not returned.
func (s *Service) logPages(ctx context.Context, book models.Book, gained int) {
	if gained <= 0 {
		return
	}
	entry := models.ReadingLogEntry{
		ID:        s.newID(),
		UserID:    book.UserID,
		BookID:    book.ID,
		PagesRead: gained,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.AddReadingLog(ctx, entry); err != nil {
		s.logger.Error("Failed to add reading log",
			zap.String("book_id", book.ID),
			zap.Int("pages", gained),
			zap.Error(err))
		return
	}
	s.publish(ctx, storage.TableReadingLogs, notify.OpInsert, book.UserID, entry.ID)
}

// RemoveBook deletes a book and everything attached to it
func (s *Service) RemoveBook(ctx context.Context, userID, bookID string) error {
	if _, err := s.GetBook(ctx, userID, bookID); err != nil {
		return err
	}
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return fmt.Errorf("failed to remove book: %w", err)
	}
	s.publish(ctx, storage.TableBooks, notify.OpDelete, userID, bookID)
	return nil
}

// Stats counts the user's books by status
func (s *Service) Stats(ctx context.Context, userID string) (models.BookStats, error) {
	books, err := s.store.ListBooks(ctx, userID)
	if err != nil {
		return models.BookStats{}, fmt.Errorf("failed to load books: %w", err)
	}

	stats := models.BookStats{TotalBooks: len(books)}
	for _, b := range books {
		switch b.Status {
		case models.StatusCompleted:
			stats.CompletedBooks++
		case models.StatusUnread:
			stats.UnreadBooks++
		}
	}
	return stats, nil
}
