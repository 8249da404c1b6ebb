package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"strings"
	"time"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type ClickHouseDB struct {
	conn clickhouse.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	return nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// ms converts t to the Int64 accepted by fromUnixTimestamp64Milli
func ms(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// msPtr is ms for nullable columns
func msPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := ms(*t)
	return &v
}

// timestamp is the placeholder for a DateTime64(3) value bound as Unix milliseconds
const timestamp = "fromUnixTimestamp64Milli(toInt64(?), 'UTC')"

// mutate runs ALTER TABLE mutations synchronously so the change is visible on return
func (db *ClickHouseDB) mutate(ctx context.Context, query string, args ...any) error {
	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 1,
	}))
	return db.conn.Exec(ctx, query, args...)
}

func (db *ClickHouseDB) exists(ctx context.Context, table, id string) (bool, error) {
	var count uint64
	row := db.conn.QueryRow(ctx, fmt.Sprintf(`SELECT count() FROM %s WHERE id = ?`, table), id)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to look up %s %s: %w", table, id, err)
	}
	return count > 0, nil
}

// update applies changes to the row with the given id
func (db *ClickHouseDB) update(ctx context.Context, table, id string, changes models.Changes) error {
	if err := storage.ValidateChanges(table, changes); err != nil {
		return err
	}

	found, err := db.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !found {
		return storage.NotFound(table, id)
	}

	columns := make([]string, 0, len(changes))
	for column := range changes {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+1)
	for _, column := range columns {
		switch v := changes[column].(type) {
		case time.Time:
			assignments = append(assignments, column+" = "+timestamp)
			args = append(args, ms(v))
		default:
			assignments = append(assignments, column+" = ?")
			args = append(args, v)
		}
	}
	args = append(args, id)

	query := fmt.Sprintf(`ALTER TABLE %s UPDATE %s WHERE id = ?`, table, strings.Join(assignments, ", "))
	if err := db.mutate(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

// remove deletes the row with the given id
func (db *ClickHouseDB) remove(ctx context.Context, table, id string) error {
	found, err := db.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !found {
		return storage.NotFound(table, id)
	}

	if err := db.mutate(ctx, fmt.Sprintf(`ALTER TABLE %s DELETE WHERE id = ?`, table), id); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

const bookColumns = `id, user_id, title, author, translator, publisher, genre, description,
	status, total_pages, read_pages, started_date, created_at`

// CreateBook inserts a new book
func (db *ClickHouseDB) CreateBook(ctx context.Context, book models.Book) error {
	err := db.conn.Exec(ctx, `INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, `+timestamp+`, `+timestamp+`)`,
		book.ID, book.UserID, book.Title, book.Author, book.Translator, book.Publisher, book.Genre,
		book.Description, string(book.Status), book.TotalPages, book.ReadPages,
		msPtr(book.StartedDate), ms(book.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// UpdateBook applies a partial update to a book
func (db *ClickHouseDB) UpdateBook(ctx context.Context, id string, changes models.Changes) error {
	return db.update(ctx, storage.TableBooks, id, changes)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (models.Book, error) {
	var (
		book       models.Book
		status     string
		totalPages int64
		readPages  int64
	)
	err := row.Scan(&book.ID, &book.UserID, &book.Title, &book.Author, &book.Translator, &book.Publisher,
		&book.Genre, &book.Description, &status, &totalPages, &readPages, &book.StartedDate, &book.CreatedAt)
	if err != nil {
		return models.Book{}, err
	}
	book.Status = models.BookStatus(status)
	book.TotalPages = int(totalPages)
	book.ReadPages = int(readPages)
	return book, nil
}

// GetBook returns a book by id
func (db *ClickHouseDB) GetBook(ctx context.Context, id string) (models.Book, error) {
	rows, err := db.conn.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return models.Book{}, fmt.Errorf("failed to get book: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return models.Book{}, storage.NotFound(storage.TableBooks, id)
	}
	book, err := scanBook(rows)
	if err != nil {
		return models.Book{}, fmt.Errorf("failed to scan book: %w", err)
	}

	loaned, err := db.loanedBooks(ctx, book.UserID)
	if err != nil {
		return models.Book{}, err
	}
	book.IsLoaned = loaned[book.ID]
	return book, nil
}

// ListBooks returns the user's books newest first
func (db *ClickHouseDB) ListBooks(ctx context.Context, userID string) ([]models.Book, error) {
	loaned, err := db.loanedBooks(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books := make([]models.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		book.IsLoaned = loaned[book.ID]
		books = append(books, book)
	}
	return books, rows.Err()
}

// loanedBooks returns the ids of the user's books with an open loan
func (db *ClickHouseDB) loanedBooks(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := db.conn.Query(ctx, `SELECT DISTINCT book_id FROM loans WHERE user_id = ? AND is_returned = false`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loaned books: %w", err)
	}
	defer rows.Close()

	loaned := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan loaned book: %w", err)
		}
		loaned[id] = true
	}
	return loaned, rows.Err()
}

// DeleteBook removes a book together with its logs, loans, quotes and notes
func (db *ClickHouseDB) DeleteBook(ctx context.Context, id string) error {
	if err := db.remove(ctx, storage.TableBooks, id); err != nil {
		return err
	}
	for _, table := range []string{storage.TableReadingLogs, storage.TableLoans, storage.TableQuotes, storage.TableNotes} {
		if err := db.mutate(ctx, fmt.Sprintf(`ALTER TABLE %s DELETE WHERE book_id = ?`, table), id); err != nil {
			return fmt.Errorf("failed to delete %s of book: %w", table, err)
		}
	}
	return nil
}

// AddReadingLog appends a reading log entry
func (db *ClickHouseDB) AddReadingLog(ctx context.Context, entry models.ReadingLogEntry) error {
	err := db.conn.Exec(ctx, `INSERT INTO reading_logs (id, user_id, book_id, pages_read, created_at)
		VALUES (?, ?, ?, ?, `+timestamp+`)`,
		entry.ID, entry.UserID, entry.BookID, entry.PagesRead, ms(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add reading log: %w", err)
	}
	return nil
}

// ListReadingLogs returns the user's entries within the query bounds
func (db *ClickHouseDB) ListReadingLogs(ctx context.Context, q models.LogQuery) ([]models.ReadingLogEntry, error) {
	query := `SELECT id, user_id, book_id, pages_read, created_at FROM reading_logs WHERE user_id = ?`
	args := []any{q.UserID}
	if !q.From.IsZero() {
		query += ` AND created_at >= ` + timestamp
		args = append(args, ms(q.From))
	}
	if !q.To.IsZero() {
		query += ` AND created_at <= ` + timestamp
		args = append(args, ms(q.To))
	}
	if q.Ascending {
		query += ` ORDER BY created_at ASC, id`
	} else {
		query += ` ORDER BY created_at DESC, id`
	}

	rows, err := db.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reading logs: %w", err)
	}
	defer rows.Close()

	entries := make([]models.ReadingLogEntry, 0)
	for rows.Next() {
		var (
			entry models.ReadingLogEntry
			pages int64
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.BookID, &pages, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading log: %w", err)
		}
		entry.PagesRead = int(pages)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const goalColumns = `id, user_id, title, type, period, target_value, start_date, end_date, is_active, created_at`

// CreateGoal inserts a new goal
func (db *ClickHouseDB) CreateGoal(ctx context.Context, goal models.Goal) error {
	err := db.conn.Exec(ctx, `INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, `+timestamp+`, `+timestamp+`, ?, `+timestamp+`)`,
		goal.ID, goal.UserID, goal.Title, string(goal.Type), string(goal.Period), goal.TargetValue,
		ms(goal.StartDate), ms(goal.EndDate), goal.IsActive, ms(goal.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// UpdateGoal applies a partial update to a goal
func (db *ClickHouseDB) UpdateGoal(ctx context.Context, id string, changes models.Changes) error {
	return db.update(ctx, storage.TableGoals, id, changes)
}

func scanGoal(row rowScanner) (models.Goal, error) {
	var (
		goal       models.Goal
		goalType   string
		goalPeriod string
		target     int64
	)
	err := row.Scan(&goal.ID, &goal.UserID, &goal.Title, &goalType, &goalPeriod, &target,
		&goal.StartDate, &goal.EndDate, &goal.IsActive, &goal.CreatedAt)
	if err != nil {
		return models.Goal{}, err
	}
	goal.Type = models.GoalType(goalType)
	goal.Period = models.Period(goalPeriod)
	goal.TargetValue = int(target)
	return goal, nil
}

// GetGoal returns a goal by id
func (db *ClickHouseDB) GetGoal(ctx context.Context, id string) (models.Goal, error) {
	rows, err := db.conn.Query(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return models.Goal{}, fmt.Errorf("failed to get goal: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return models.Goal{}, storage.NotFound(storage.TableGoals, id)
	}
	goal, err := scanGoal(rows)
	if err != nil {
		return models.Goal{}, fmt.Errorf("failed to scan goal: %w", err)
	}
	return goal, nil
}

// ListGoals returns the user's goals newest first
func (db *ClickHouseDB) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	rows, err := db.conn.Query(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	goals := make([]models.Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

// DeleteGoal removes a goal
func (db *ClickHouseDB) DeleteGoal(ctx context.Context, id string) error {
	return db.remove(ctx, storage.TableGoals, id)
}

// CreateLoan inserts a new loan
func (db *ClickHouseDB) CreateLoan(ctx context.Context, loan models.Loan) error {
	err := db.conn.Exec(ctx, `INSERT INTO loans (id, user_id, book_id, borrower_name, borrowed_at, is_returned, note, created_at)
		VALUES (?, ?, ?, ?, `+timestamp+`, ?, ?, `+timestamp+`)`,
		loan.ID, loan.UserID, loan.BookID, loan.BorrowerName, ms(loan.BorrowedAt), loan.IsReturned, loan.Note, ms(loan.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// UpdateLoan applies a partial update to a loan
func (db *ClickHouseDB) UpdateLoan(ctx context.Context, id string, changes models.Changes) error {
	return db.update(ctx, storage.TableLoans, id, changes)
}

const loanSelect = `SELECT l.id, l.user_id, l.book_id, b.title, l.borrower_name, l.borrowed_at, l.is_returned, l.note, l.created_at
	FROM loans AS l LEFT JOIN books AS b ON b.id = l.book_id`

func scanLoan(row rowScanner) (models.Loan, error) {
	var loan models.Loan
	err := row.Scan(&loan.ID, &loan.UserID, &loan.BookID, &loan.BookTitle, &loan.BorrowerName,
		&loan.BorrowedAt, &loan.IsReturned, &loan.Note, &loan.CreatedAt)
	return loan, err
}

// GetLoan returns a loan by id
func (db *ClickHouseDB) GetLoan(ctx context.Context, id string) (models.Loan, error) {
	rows, err := db.conn.Query(ctx, loanSelect+` WHERE l.id = ? LIMIT 1`, id)
	if err != nil {
		return models.Loan{}, fmt.Errorf("failed to get loan: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return models.Loan{}, storage.NotFound(storage.TableLoans, id)
	}
	loan, err := scanLoan(rows)
	if err != nil {
		return models.Loan{}, fmt.Errorf("failed to scan loan: %w", err)
	}
	return loan, nil
}

// ListLoans returns the user's loans newest first
func (db *ClickHouseDB) ListLoans(ctx context.Context, userID string) ([]models.Loan, error) {
	rows, err := db.conn.Query(ctx, loanSelect+` WHERE l.user_id = ? ORDER BY l.created_at DESC, l.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	loans := make([]models.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// DeleteLoan removes a loan
func (db *ClickHouseDB) DeleteLoan(ctx context.Context, id string) error {
	return db.remove(ctx, storage.TableLoans, id)
}

// CreateQuote inserts a new quote
func (db *ClickHouseDB) CreateQuote(ctx context.Context, quote models.Quote) error {
	var page *int64
	if quote.Page != nil {
		p := int64(*quote.Page)
		page = &p
	}
	err := db.conn.Exec(ctx, `INSERT INTO quotes (id, user_id, book_id, title, quote, page, created_at)
		VALUES (?, ?, ?, ?, ?, ?, `+timestamp+`)`,
		quote.ID, quote.UserID, quote.BookID, quote.Title, quote.Text, page, ms(quote.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create quote: %w", err)
	}
	return nil
}

// UpdateQuote applies a partial update to a quote
func (db *ClickHouseDB) UpdateQuote(ctx context.Context, id string, changes models.Changes) error {
	return db.update(ctx, storage.TableQuotes, id, changes)
}

// ListQuotes returns matching quotes newest first
func (db *ClickHouseDB) ListQuotes(ctx context.Context, q models.QuoteQuery) ([]models.Quote, error) {
	query := `SELECT id, user_id, book_id, title, quote, page, created_at FROM quotes WHERE user_id = ?`
	args := []any{q.UserID}
	if q.BookID != "" {
		query += ` AND book_id = ?`
		args = append(args, q.BookID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := db.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]models.Quote, 0)
	for rows.Next() {
		var (
			quote models.Quote
			page  *int64
		)
		if err := rows.Scan(&quote.ID, &quote.UserID, &quote.BookID, &quote.Title, &quote.Text, &page, &quote.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		if page != nil {
			p := int(*page)
			quote.Page = &p
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

// DeleteQuote removes a quote
func (db *ClickHouseDB) DeleteQuote(ctx context.Context, id string) error {
	return db.remove(ctx, storage.TableQuotes, id)
}

// CreateNote inserts a new note
func (db *ClickHouseDB) CreateNote(ctx context.Context, note models.Note) error {
	err := db.conn.Exec(ctx, `INSERT INTO notes (id, user_id, book_id, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, `+timestamp+`)`,
		note.ID, note.UserID, note.BookID, note.Title, note.Content, ms(note.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// UpdateNote applies a partial update to a note
func (db *ClickHouseDB) UpdateNote(ctx context.Context, id string, changes models.Changes) error {
	return db.update(ctx, storage.TableNotes, id, changes)
}

// GetNote returns a note by id
func (db *ClickHouseDB) GetNote(ctx context.Context, id string) (models.Note, error) {
	rows, err := db.conn.Query(ctx, `SELECT id, user_id, book_id, title, content, created_at FROM notes WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return models.Note{}, fmt.Errorf("failed to get note: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return models.Note{}, storage.NotFound(storage.TableNotes, id)
	}
	var note models.Note
	if err := rows.Scan(&note.ID, &note.UserID, &note.BookID, &note.Title, &note.Content, &note.CreatedAt); err != nil {
		return models.Note{}, fmt.Errorf("failed to scan note: %w", err)
	}
	return note, nil
}

// ListNotes returns a book's notes newest first
func (db *ClickHouseDB) ListNotes(ctx context.Context, bookID string) ([]models.Note, error) {
	rows, err := db.conn.Query(ctx, `SELECT id, user_id, book_id, title, content, created_at FROM notes
		WHERE book_id = ? ORDER BY created_at DESC, id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0)
	for rows.Next() {
		var note models.Note
		if err := rows.Scan(&note.ID, &note.UserID, &note.BookID, &note.Title, &note.Content, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// DeleteNote removes a note
func (db *ClickHouseDB) DeleteNote(ctx context.Context, id string) error {
	return db.remove(ctx, storage.TableNotes, id)
}
