package models

import "time"

// BookStatus is the reading state of a book
type BookStatus string

const (
	StatusUnread    BookStatus = "unread"
	StatusReading   BookStatus = "reading"
	StatusCompleted BookStatus = "completed"
)

// Valid reports whether s is one of the known statuses
func (s BookStatus) Valid() bool {
	switch s {
	case StatusUnread, StatusReading, StatusCompleted:
		return true
	}
	return false
}

// GoalType is what a goal counts
type GoalType string

const (
	GoalPages GoalType = "pages"
	GoalBooks GoalType = "books"
)

// Period is a recurring granularity used for goals and charts
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// Book represents a book on the user's shelf
type Book struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Author      string     `json:"author" db:"author"`
	Translator  string     `json:"translator,omitempty" db:"translator"`
	Publisher   string     `json:"publisher,omitempty" db:"publisher"`
	Genre       string     `json:"genre,omitempty" db:"genre"`
	Description string     `json:"description,omitempty" db:"description"`
	Status      BookStatus `json:"status" db:"status"`
	TotalPages  int        `json:"total_pages" db:"total_pages"`
	ReadPages   int        `json:"read_pages" db:"read_pages"`
	StartedDate *time.Time `json:"started_date,omitempty" db:"started_date"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	IsLoaned    bool       `json:"is_loaned" db:"-"`
}

// ReadingLogEntry is one increment of pages read. Entries are never updated.
type ReadingLogEntry struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	BookID    string    `json:"book_id" db:"book_id"`
	PagesRead int       `json:"pages_read" db:"pages_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Goal is a reading target over a recurring period
type Goal struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Type        GoalType  `json:"type" db:"type"`
	Period      Period    `json:"period" db:"period"`
	TargetValue int       `json:"target_value" db:"target_value"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// GoalProgress is the computed state of a goal. It is never stored.
type GoalProgress struct {
	Progress   int `json:"progress"`
	Percentage int `json:"percentage"`
}

// GoalWithProgress pairs a goal with its freshly computed progress
type GoalWithProgress struct {
	Goal     Goal         `json:"goal"`
	Progress GoalProgress `json:"progress"`
}

// Loan records a book lent to someone
type Loan struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	BookID       string    `json:"book_id" db:"book_id"`
	BookTitle    string    `json:"book_title" db:"-"`
	BorrowerName string    `json:"borrower_name" db:"borrower_name"`
	BorrowedAt   time.Time `json:"borrowed_at" db:"borrowed_at"`
	IsReturned   bool      `json:"is_returned" db:"is_returned"`
	Note         string    `json:"note,omitempty" db:"note"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Quote is a passage saved from a book
type Quote struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	BookID    string    `json:"book_id" db:"book_id"`
	Title     string    `json:"title" db:"title"`
	Text      string    `json:"quote" db:"quote"`
	Page      *int      `json:"page,omitempty" db:"page"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Note is a free-form note attached to a book
type Note struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	BookID    string    `json:"book_id" db:"book_id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BookStats summarises a user's shelf
type BookStats struct {
	TotalBooks     int `json:"total_books"`
	CompletedBooks int `json:"completed_books"`
	UnreadBooks    int `json:"unread_books"`
}

// ChartPoint is one bar of the reading chart
type ChartPoint struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// LogQuery filters reading log entries. From and To are inclusive; a zero value leaves that side open.
type LogQuery struct {
	UserID    string
	From      time.Time
	To        time.Time
	Ascending bool
}

// Contains reports whether t falls within the query's time bounds
func (q LogQuery) Contains(t time.Time) bool {
	if !q.From.IsZero() && t.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && t.After(q.To) {
		return false
	}
	return true
}

// QuoteQuery filters quotes. An empty BookID returns quotes for every book.
type QuoteQuery struct {
	UserID string
	BookID string
}
