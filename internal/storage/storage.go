package storage

import (
	"context"
	"errors"
	"fmt"

	"bookshelf/internal/models"
)

// ErrNotFound is returned when a row addressed by id does not exist
var ErrNotFound = errors.New("not found")

// Table names, shared by every backend and by change notifications
const (
	TableBooks       = "books"
	TableReadingLogs = "reading_logs"
	TableGoals       = "goals"
	TableLoans       = "loans"
	TableQuotes      = "quotes"
	TableNotes       = "notes"
)

// Storage defines the interface for data storage operations
type Storage interface {
	// Book operations
	CreateBook(ctx context.Context, book models.Book) error
	UpdateBook(ctx context.Context, id string, changes models.Changes) error
	GetBook(ctx context.Context, id string) (models.Book, error)
	// ListBooks returns the user's books newest first, with IsLoaned filled in
	ListBooks(ctx context.Context, userID string) ([]models.Book, error)
	DeleteBook(ctx context.Context, id string) error

	// Reading log operations. Entries are append-only.
	AddReadingLog(ctx context.Context, entry models.ReadingLogEntry) error
	// ListReadingLogs returns the user's entries whose created_at lies within
	// [From, To], both inclusive. Newest first unless q.Ascending is set.
	ListReadingLogs(ctx context.Context, q models.LogQuery) ([]models.ReadingLogEntry, error)

	// Goal operations
	CreateGoal(ctx context.Context, goal models.Goal) error
	UpdateGoal(ctx context.Context, id string, changes models.Changes) error
	GetGoal(ctx context.Context, id string) (models.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]models.Goal, error)
	DeleteGoal(ctx context.Context, id string) error

	// Loan operations
	CreateLoan(ctx context.Context, loan models.Loan) error
	UpdateLoan(ctx context.Context, id string, changes models.Changes) error
	GetLoan(ctx context.Context, id string) (models.Loan, error)
	// ListLoans returns the user's loans newest first, with BookTitle filled in
	ListLoans(ctx context.Context, userID string) ([]models.Loan, error)
	DeleteLoan(ctx context.Context, id string) error

	// Quote operations
	CreateQuote(ctx context.Context, quote models.Quote) error
	UpdateQuote(ctx context.Context, id string, changes models.Changes) error
	ListQuotes(ctx context.Context, q models.QuoteQuery) ([]models.Quote, error)
	DeleteQuote(ctx context.Context, id string) error

	// Note operations
	CreateNote(ctx context.Context, note models.Note) error
	UpdateNote(ctx context.Context, id string, changes models.Changes) error
	GetNote(ctx context.Context, id string) (models.Note, error)
	ListNotes(ctx context.Context, bookID string) ([]models.Note, error)
	DeleteNote(ctx context.Context, id string) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

// updatable lists the columns a partial update may touch, per table
var updatable = map[string]map[string]bool{
	TableBooks: {
		"title": true, "author": true, "translator": true, "publisher": true, "genre": true,
		"description": true, "status": true, "total_pages": true, "read_pages": true, "started_date": true,
	},
	TableGoals: {
		"title": true, "type": true, "period": true, "target_value": true,
		"start_date": true, "end_date": true, "is_active": true,
	},
	TableLoans: {
		"borrower_name": true, "borrowed_at": true, "is_returned": true, "note": true,
	},
	TableQuotes: {
		"quote": true, "page": true,
	},
	TableNotes: {
		"title": true, "content": true,
	},
}

// ValidateChanges rejects empty change sets and columns that may not be updated on table
func ValidateChanges(table string, changes models.Changes) error {
	if len(changes) == 0 {
		return fmt.Errorf("no changes for %s", table)
	}
	allowed, ok := updatable[table]
	if !ok {
		return fmt.Errorf("table %s does not support updates", table)
	}
	for column := range changes {
		if !allowed[column] {
			return fmt.Errorf("column %s cannot be updated on %s", column, table)
		}
	}
	return nil
}

// NotFound wraps ErrNotFound with the table and id that were missing
func NotFound(table, id string) error {
	return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
}
