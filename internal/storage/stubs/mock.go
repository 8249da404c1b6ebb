package stubs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu     sync.RWMutex
	books  map[string]models.Book
	logs   []models.ReadingLogEntry
	goals  map[string]models.Goal
	loans  map[string]models.Loan
	quotes map[string]models.Quote
	notes  map[string]models.Note

	// failure, when set, is returned by every call
	failure error
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		books:  make(map[string]models.Book),
		logs:   make([]models.ReadingLogEntry, 0),
		goals:  make(map[string]models.Goal),
		loans:  make(map[string]models.Loan),
		quotes: make(map[string]models.Quote),
		notes:  make(map[string]models.Note),
	}
}

// Fail makes every subsequent call return err. Pass nil to recover.
func (m *MockDB) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}

// CreateBook stores a new book
func (m *MockDB) CreateBook(ctx context.Context, book models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	book.IsLoaned = false
	m.books[book.ID] = book
	return nil
}

// UpdateBook applies a partial update to a book
func (m *MockDB) UpdateBook(ctx context.Context, id string, changes models.Changes) error {
	if err := storage.ValidateChanges(storage.TableBooks, changes); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	book, ok := m.books[id]
	if !ok {
		return storage.NotFound(storage.TableBooks, id)
	}
	for column, value := range changes {
		var err error
		switch column {
		case "title":
			err = assign(&book.Title, value)
		case "author":
			err = assign(&book.Author, value)
		case "translator":
			err = assign(&book.Translator, value)
		case "publisher":
			err = assign(&book.Publisher, value)
		case "genre":
			err = assign(&book.Genre, value)
		case "description":
			err = assign(&book.Description, value)
		case "status":
			var s string
			err = assign(&s, value)
			book.Status = models.BookStatus(s)
		case "total_pages":
			err = assign(&book.TotalPages, value)
		case "read_pages":
			err = assign(&book.ReadPages, value)
		case "started_date":
			var t time.Time
			err = assign(&t, value)
			book.StartedDate = &t
		}
		if err != nil {
			return fmt.Errorf("failed to update book %s: %w", column, err)
		}
	}
	m.books[id] = book
	return nil
}

// GetBook returns a book by id
func (m *MockDB) GetBook(ctx context.Context, id string) (models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return models.Book{}, m.failure
	}

	book, ok := m.books[id]
	if !ok {
		return models.Book{}, storage.NotFound(storage.TableBooks, id)
	}
	book.IsLoaned = m.isLoaned(id)
	return book, nil
}

// ListBooks returns the user's books newest first
func (m *MockDB) ListBooks(ctx context.Context, userID string) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return nil, m.failure
	}

	books := make([]models.Book, 0)
	for _, book := range m.books {
		if book.UserID != userID {
			continue
		}
		book.IsLoaned = m.isLoaned(book.ID)
		books = append(books, book)
	}

	sort.Slice(books, func(i, j int) bool {
		if !books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].CreatedAt.After(books[j].CreatedAt)
		}
		return books[i].ID < books[j].ID
	})

	return books, nil
}

// DeleteBook removes a book together with its logs, loans, quotes and notes
func (m *MockDB) DeleteBook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	if _, ok := m.books[id]; !ok {
		return storage.NotFound(storage.TableBooks, id)
	}
	delete(m.books, id)

	logs := m.logs[:0]
	for _, e := range m.logs {
		if e.BookID != id {
			logs = append(logs, e)
		}
	}
	m.logs = logs
	for k, l := range m.loans {
		if l.BookID == id {
			delete(m.loans, k)
		}
	}
	for k, q := range m.quotes {
		if q.BookID == id {
			delete(m.quotes, k)
		}
	}
	for k, n := range m.notes {
		if n.BookID == id {
			delete(m.notes, k)
		}
	}
	return nil
}

// isLoaned must be called with the lock held
func (m *MockDB) isLoaned(bookID string) bool {
	for _, l := range m.loans {
		if l.BookID == bookID && !l.IsReturned {
			return true
		}
	}
	return false
}

// AddReadingLog appends a reading log entry
func (m *MockDB) AddReadingLog(ctx context.Context, entry models.ReadingLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	m.logs = append(m.logs, entry)
	return nil
}

// ListReadingLogs returns the user's entries within the query bounds
func (m *MockDB) ListReadingLogs(ctx context.Context, q models.LogQuery) ([]models.ReadingLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return nil, m.failure
	}

	entries := make([]models.ReadingLogEntry, 0)
	for _, e := range m.logs {
		if e.UserID != q.UserID || !q.Contains(e.CreatedAt) {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if q.Ascending {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	return entries, nil
}

// CreateGoal stores a new goal
func (m *MockDB) CreateGoal(ctx context.Context, goal models.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	m.goals[goal.ID] = goal
	return nil
}

// UpdateGoal applies a partial update to a goal
func (m *MockDB) UpdateGoal(ctx context.Context, id string, changes models.Changes) error {
	if err := storage.ValidateChanges(storage.TableGoals, changes); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	goal, ok := m.goals[id]
	if !ok {
		return storage.NotFound(storage.TableGoals, id)
	}
	for column, value := range changes {
		var err error
		switch column {
		case "title":
			err = assign(&goal.Title, value)
		case "type":
			var s string
			err = assign(&s, value)
			goal.Type = models.GoalType(s)
		case "period":
			var s string
			err = assign(&s, value)
			goal.Period = models.Period(s)
		case "target_value":
			err = assign(&goal.TargetValue, value)
		case "start_date":
			err = assign(&goal.StartDate, value)
		case "end_date":
			err = assign(&goal.EndDate, value)
		case "is_active":
			err = assign(&goal.IsActive, value)
		}
		if err != nil {
			return fmt.Errorf("failed to update goal %s: %w", column, err)
		}
	}
	m.goals[id] = goal
	return nil
}

// GetGoal returns a goal by id
func (m *MockDB) GetGoal(ctx context.Context, id string) (models.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return models.Goal{}, m.failure
	}

	goal, ok := m.goals[id]
	if !ok {
		return models.Goal{}, storage.NotFound(storage.TableGoals, id)
	}
	return goal, nil
}

// ListGoals returns the user's goals newest first
func (m *MockDB) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return nil, m.failure
	}

	goals := make([]models.Goal, 0)
	for _, g := range m.goals {
		if g.UserID == userID {
			goals = append(goals, g)
		}
	}
	sort.Slice(goals, func(i, j int) bool {
		if !goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].CreatedAt.After(goals[j].CreatedAt)
		}
		return goals[i].ID < goals[j].ID
	})
	return goals, nil
}

// DeleteGoal removes a goal
func (m *MockDB) DeleteGoal(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	if _, ok := m.goals[id]; !ok {
		return storage.NotFound(storage.TableGoals, id)
	}
	delete(m.goals, id)
	return nil
}

// CreateLoan stores a new loan
func (m *MockDB) CreateLoan(ctx context.Context, loan models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	loan.BookTitle = ""
	m.loans[loan.ID] = loan
	return nil
}

// UpdateLoan applies a partial update to a loan
func (m *MockDB) UpdateLoan(ctx context.Context, id string, changes models.Changes) error {
	if err := storage.ValidateChanges(storage.TableLoans, changes); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	loan, ok := m.loans[id]
	if !ok {
		return storage.NotFound(storage.TableLoans, id)
	}
	for column, value := range changes {
		var err error
		switch column {
		case "borrower_name":
			err = assign(&loan.BorrowerName, value)
		case "borrowed_at":
			err = assign(&loan.BorrowedAt, value)
		case "is_returned":
			err = assign(&loan.IsReturned, value)
		case "note":
			err = assign(&loan.Note, value)
		}
		if err != nil {
			return fmt.Errorf("failed to update loan %s: %w", column, err)
		}
	}
	m.loans[id] = loan
	return nil
}

// GetLoan returns a loan by id
func (m *MockDB) GetLoan(ctx context.Context, id string) (models.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return models.Loan{}, m.failure
	}

	loan, ok := m.loans[id]
	if !ok {
		return models.Loan{}, storage.NotFound(storage.TableLoans, id)
	}
	loan.BookTitle = m.books[loan.BookID].Title
	return loan, nil
}

// ListLoans returns the user's loans newest first
func (m *MockDB) ListLoans(ctx context.Context, userID string) ([]models.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return nil, m.failure
	}

	loans := make([]models.Loan, 0)
	for _, l := range m.loans {
		if l.UserID != userID {
			continue
		}
		l.BookTitle = m.books[l.BookID].Title
		loans = append(loans, l)
	}
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].CreatedAt.Equal(loans[j].CreatedAt) {
			return loans[i].CreatedAt.After(loans[j].CreatedAt)
		}
		return loans[i].ID < loans[j].ID
	})
	return loans, nil
}

// DeleteLoan removes a loan
func (m *MockDB) DeleteLoan(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	if _, ok := m.loans[id]; !ok {
		return storage.NotFound(storage.TableLoans, id)
	}
	delete(m.loans, id)
	return nil
}

// CreateQuote stores a new quote
func (m *MockDB) CreateQuote(ctx context.Context, quote models.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	m.quotes[quote.ID] = quote
	return nil
}

// UpdateQuote applies a partial update to a quote
func (m *MockDB) UpdateQuote(ctx context.Context, id string, changes models.Changes) error {
	if err := storage.ValidateChanges(storage.TableQuotes, changes); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	quote, ok := m.quotes[id]
	if !ok {
		return storage.NotFound(storage.TableQuotes, id)
	}
	for column, value := range changes {
		var err error
		switch column {
		case "quote":
			err = assign(&quote.Text, value)
		case "page":
			var page int
			err = assign(&page, value)
			quote.Page = &page
		}
		if err != nil {
			return fmt.Errorf("failed to update quote %s: %w", column, err)
		}
	}
	m.quotes[id] = quote
	return nil
}

// ListQuotes returns matching quotes newest first
func (m *MockDB) ListQuotes(ctx context.Context, q models.QuoteQuery) ([]models.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return nil, m.failure
	}

	quotes := make([]models.Quote, 0)
	for _, quote := range m.quotes {
		if quote.UserID != q.UserID {
			continue
		}
		if q.BookID != "" && quote.BookID != q.BookID {
			continue
		}
		quotes = append(quotes, quote)
	}
	sort.Slice(quotes, func(i, j int) bool {
		if !quotes[i].CreatedAt.Equal(quotes[j].CreatedAt) {
			return quotes[i].CreatedAt.After(quotes[j].CreatedAt)
		}
		return quotes[i].ID < quotes[j].ID
	})
	return quotes, nil
}

// DeleteQuote removes a quote
func (m *MockDB) DeleteQuote(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	if _, ok := m.quotes[id]; !ok {
		return storage.NotFound(storage.TableQuotes, id)
	}
	delete(m.quotes, id)
	return nil
}

// CreateNote stores a new note
func (m *MockDB) CreateNote(ctx context.Context, note models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	m.notes[note.ID] = note
	return nil
}

// UpdateNote applies a partial update to a note
func (m *MockDB) UpdateNote(ctx context.Context, id string, changes models.Changes) error {
	if err := storage.ValidateChanges(storage.TableNotes, changes); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	note, ok := m.notes[id]
	if !ok {
		return storage.NotFound(storage.TableNotes, id)
	}
	for column, value := range changes {
		var err error
		switch column {
		case "title":
			err = assign(&note.Title, value)
		case "content":
			err = assign(&note.Content, value)
		}
		if err != nil {
			return fmt.Errorf("failed to update note %s: %w", column, err)
		}
	}
	m.notes[id] = note
	return nil
}

// GetNote returns a note by id
func (m *MockDB) GetNote(ctx context.Context, id string) (models.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return models.Note{}, m.failure
	}

	note, ok := m.notes[id]
	if !ok {
		return models.Note{}, storage.NotFound(storage.TableNotes, id)
	}
	return note, nil
}

// ListNotes returns a book's notes newest first
func (m *MockDB) ListNotes(ctx context.Context, bookID string) ([]models.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return nil, m.failure
	}

	notes := make([]models.Note, 0)
	for _, n := range m.notes {
		if n.BookID == bookID {
			notes = append(notes, n)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}

// DeleteNote removes a note
func (m *MockDB) DeleteNote(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	if _, ok := m.notes[id]; !ok {
		return storage.NotFound(storage.TableNotes, id)
	}
	delete(m.notes, id)
	return nil
}

// assign copies value into dst when the dynamic types match
func assign[T any](dst *T, value any) error {
	v, ok := value.(T)
	if !ok {
		return fmt.Errorf("unexpected value type %T", value)
	}
	*dst = v
	return nil
}
