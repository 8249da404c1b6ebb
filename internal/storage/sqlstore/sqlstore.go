// Package sqlstore implements storage.Storage on a relational database through sqlx.
// Postgres is used in production and SQLite for local runs and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
	"bookshelf/migrations"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Store is a sqlx backed storage
type Store struct {
	db     *sqlx.DB
	driver string
}

// NewPostgres connects to a Postgres database
func NewPostgres(dsn string) (*Store, error) {
	db, err := sqlx.Connect(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &Store{db: db, driver: DriverPostgres}, nil
}

// NewSQLite opens a SQLite database file, or an in-memory one for ":memory:"
func NewSQLite(path string) (*Store, error) {
	db, err := sqlx.Connect(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	// SQLite doesn't support multiple writers, and every connection to
	// :memory: would see its own empty database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return &Store{db: db, driver: DriverSQLite}, nil
}

// Initialize applies the embedded migrations
func (s *Store) Initialize(ctx context.Context) error {
	dialect := goose.DialectPostgres
	if s.driver == DriverSQLite {
		dialect = goose.DialectSQLite3
	}

	fsys, err := fs.Sub(migrations.FS, migrations.SQLDir)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, s.db.DB, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// update applies changes to the row with the given id
func (s *Store) update(ctx context.Context, table, id string, changes models.Changes) error {
	if err := storage.ValidateChanges(table, changes); err != nil {
		return err
	}

	columns := make([]string, 0, len(changes))
	for column := range changes {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+1)
	for _, column := range columns {
		assignments = append(assignments, column+" = ?")
		v := changes[column]
		if t, ok := v.(time.Time); ok {
			v = t.UTC()
		}
		args = append(args, v)
	}
	args = append(args, id)

	query := s.db.Rebind(fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, table, strings.Join(assignments, ", ")))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return checkAffected(res, table, id)
}

// remove deletes the row with the given id
func (s *Store) remove(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table)), id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return checkAffected(res, table, id)
}

func checkAffected(res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.NotFound(table, id)
	}
	return nil
}

// get loads a single row into dest, mapping no rows to ErrNotFound
func (s *Store) get(ctx context.Context, dest any, table, id, query string) error {
	err := s.db.GetContext(ctx, dest, s.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.NotFound(table, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", table, err)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

const bookColumns = `id, user_id, title, author, translator, publisher, genre, description,
	status, total_pages, read_pages, started_date, created_at`

// CreateBook inserts a new book
func (s *Store) CreateBook(ctx context.Context, book models.Book) error {
	book.CreatedAt = book.CreatedAt.UTC()
	book.StartedDate = utcPtr(book.StartedDate)
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO books (`+bookColumns+`) VALUES (
		:id, :user_id, :title, :author, :translator, :publisher, :genre, :description,
		:status, :total_pages, :read_pages, :started_date, :created_at)`, book)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// UpdateBook applies a partial update to a book
func (s *Store) UpdateBook(ctx context.Context, id string, changes models.Changes) error {
	return s.update(ctx, storage.TableBooks, id, changes)
}

// GetBook returns a book by id
func (s *Store) GetBook(ctx context.Context, id string) (models.Book, error) {
	var book models.Book
	if err := s.get(ctx, &book, storage.TableBooks, id, `SELECT `+bookColumns+` FROM books WHERE id = ?`); err != nil {
		return models.Book{}, err
	}

	var open int
	err := s.db.GetContext(ctx, &open, s.db.Rebind(`SELECT COUNT(*) FROM loans WHERE book_id = ? AND is_returned = ?`), id, false)
	if err != nil {
		return models.Book{}, fmt.Errorf("failed to count loans: %w", err)
	}
	book.IsLoaned = open > 0
	return book, nil
}

// ListBooks returns the user's books newest first
func (s *Store) ListBooks(ctx context.Context, userID string) ([]models.Book, error) {
	books := make([]models.Book, 0)
	err := s.db.SelectContext(ctx, &books, s.db.Rebind(`SELECT `+bookColumns+` FROM books
		WHERE user_id = ? ORDER BY created_at DESC, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	var loaned []string
	err = s.db.SelectContext(ctx, &loaned, s.db.Rebind(`SELECT DISTINCT book_id FROM loans
		WHERE user_id = ? AND is_returned = ?`), userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list loaned books: %w", err)
	}
	open := make(map[string]bool, len(loaned))
	for _, id := range loaned {
		open[id] = true
	}
	for i := range books {
		books[i].IsLoaned = open[books[i].ID]
	}
	return books, nil
}

// DeleteBook removes a book together with its logs, loans, quotes and notes
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{storage.TableReadingLogs, storage.TableLoans, storage.TableQuotes, storage.TableNotes} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE book_id = ?`, table)), id); err != nil {
			return fmt.Errorf("failed to delete %s of book: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM books WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if err := checkAffected(res, storage.TableBooks, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AddReadingLog appends a reading log entry
func (s *Store) AddReadingLog(ctx context.Context, entry models.ReadingLogEntry) error {
	entry.CreatedAt = entry.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO reading_logs (id, user_id, book_id, pages_read, created_at)
		VALUES (:id, :user_id, :book_id, :pages_read, :created_at)`, entry)
	if err != nil {
		return fmt.Errorf("failed to add reading log: %w", err)
	}
	return nil
}

// ListReadingLogs returns the user's entries within the query bounds
func (s *Store) ListReadingLogs(ctx context.Context, q models.LogQuery) ([]models.ReadingLogEntry, error) {
	query := `SELECT id, user_id, book_id, pages_read, created_at FROM reading_logs WHERE user_id = ?`
	args := []any{q.UserID}
	if !q.From.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		query += ` AND created_at <= ?`
		args = append(args, q.To.UTC())
	}
	if q.Ascending {
		query += ` ORDER BY created_at ASC, id`
	} else {
		query += ` ORDER BY created_at DESC, id`
	}

	entries := make([]models.ReadingLogEntry, 0)
	if err := s.db.SelectContext(ctx, &entries, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list reading logs: %w", err)
	}
	return entries, nil
}

const goalColumns = `id, user_id, title, type, period, target_value, start_date, end_date, is_active, created_at`

// CreateGoal inserts a new goal
func (s *Store) CreateGoal(ctx context.Context, goal models.Goal) error {
	goal.StartDate = goal.StartDate.UTC()
	goal.EndDate = goal.EndDate.UTC()
	goal.CreatedAt = goal.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO goals (`+goalColumns+`) VALUES (
		:id, :user_id, :title, :type, :period, :target_value, :start_date, :end_date, :is_active, :created_at)`, goal)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// UpdateGoal applies a partial update to a goal
func (s *Store) UpdateGoal(ctx context.Context, id string, changes models.Changes) error {
	return s.update(ctx, storage.TableGoals, id, changes)
}

// GetGoal returns a goal by id
func (s *Store) GetGoal(ctx context.Context, id string) (models.Goal, error) {
	var goal models.Goal
	if err := s.get(ctx, &goal, storage.TableGoals, id, `SELECT `+goalColumns+` FROM goals WHERE id = ?`); err != nil {
		return models.Goal{}, err
	}
	return goal, nil
}

// ListGoals returns the user's goals newest first
func (s *Store) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	goals := make([]models.Goal, 0)
	err := s.db.SelectContext(ctx, &goals, s.db.Rebind(`SELECT `+goalColumns+` FROM goals
		WHERE user_id = ? ORDER BY created_at DESC, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

// DeleteGoal removes a goal
func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	return s.remove(ctx, storage.TableGoals, id)
}

// loanRow carries the joined book title next to the loan columns
type loanRow struct {
	models.Loan
	Title string `db:"book_title"`
}

func (r loanRow) loan() models.Loan {
	loan := r.Loan
	loan.BookTitle = r.Title
	return loan
}

const loanSelect = `SELECT l.id, l.user_id, l.book_id, COALESCE(b.title, '') AS book_title, l.borrower_name,
	l.borrowed_at, l.is_returned, l.note, l.created_at
	FROM loans l LEFT JOIN books b ON b.id = l.book_id`

// CreateLoan inserts a new loan
func (s *Store) CreateLoan(ctx context.Context, loan models.Loan) error {
	loan.BorrowedAt = loan.BorrowedAt.UTC()
	loan.CreatedAt = loan.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO loans (id, user_id, book_id, borrower_name, borrowed_at, is_returned, note, created_at)
		VALUES (:id, :user_id, :book_id, :borrower_name, :borrowed_at, :is_returned, :note, :created_at)`, loan)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// UpdateLoan applies a partial update to a loan
func (s *Store) UpdateLoan(ctx context.Context, id string, changes models.Changes) error {
	return s.update(ctx, storage.TableLoans, id, changes)
}

// GetLoan returns a loan by id
func (s *Store) GetLoan(ctx context.Context, id string) (models.Loan, error) {
	var row loanRow
	if err := s.get(ctx, &row, storage.TableLoans, id, loanSelect+` WHERE l.id = ?`); err != nil {
		return models.Loan{}, err
	}
	return row.loan(), nil
}

// ListLoans returns the user's loans newest first
func (s *Store) ListLoans(ctx context.Context, userID string) ([]models.Loan, error) {
	var rows []loanRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(loanSelect+` WHERE l.user_id = ? ORDER BY l.created_at DESC, l.id`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	loans := make([]models.Loan, 0, len(rows))
	for _, r := range rows {
		loans = append(loans, r.loan())
	}
	return loans, nil
}

// DeleteLoan removes a loan
func (s *Store) DeleteLoan(ctx context.Context, id string) error {
	return s.remove(ctx, storage.TableLoans, id)
}

const quoteColumns = `id, user_id, book_id, title, quote, page, created_at`

// CreateQuote inserts a new quote
func (s *Store) CreateQuote(ctx context.Context, quote models.Quote) error {
	quote.CreatedAt = quote.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO quotes (`+quoteColumns+`)
		VALUES (:id, :user_id, :book_id, :title, :quote, :page, :created_at)`, quote)
	if err != nil {
		return fmt.Errorf("failed to create quote: %w", err)
	}
	return nil
}

// UpdateQuote applies a partial update to a quote
func (s *Store) UpdateQuote(ctx context.Context, id string, changes models.Changes) error {
	return s.update(ctx, storage.TableQuotes, id, changes)
}

// ListQuotes returns matching quotes newest first
func (s *Store) ListQuotes(ctx context.Context, q models.QuoteQuery) ([]models.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE user_id = ?`
	args := []any{q.UserID}
	if q.BookID != "" {
		query += ` AND book_id = ?`
		args = append(args, q.BookID)
	}
	query += ` ORDER BY created_at DESC, id`

	quotes := make([]models.Quote, 0)
	if err := s.db.SelectContext(ctx, &quotes, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	return quotes, nil
}

// DeleteQuote removes a quote
func (s *Store) DeleteQuote(ctx context.Context, id string) error {
	return s.remove(ctx, storage.TableQuotes, id)
}

const noteColumns = `id, user_id, book_id, title, content, created_at`

// CreateNote inserts a new note
func (s *Store) CreateNote(ctx context.Context, note models.Note) error {
	note.CreatedAt = note.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO notes (`+noteColumns+`)
		VALUES (:id, :user_id, :book_id, :title, :content, :created_at)`, note)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// UpdateNote applies a partial update to a note
func (s *Store) UpdateNote(ctx context.Context, id string, changes models.Changes) error {
	return s.update(ctx, storage.TableNotes, id, changes)
}

// GetNote returns a note by id
func (s *Store) GetNote(ctx context.Context, id string) (models.Note, error) {
	var note models.Note
	if err := s.get(ctx, &note, storage.TableNotes, id, `SELECT `+noteColumns+` FROM notes WHERE id = ?`); err != nil {
		return models.Note{}, err
	}
	return note, nil
}

// ListNotes returns a book's notes newest first
func (s *Store) ListNotes(ctx context.Context, bookID string) ([]models.Note, error) {
	notes := make([]models.Note, 0)
	err := s.db.SelectContext(ctx, &notes, s.db.Rebind(`SELECT `+noteColumns+` FROM notes
		WHERE book_id = ? ORDER BY created_at DESC, id`), bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

// DeleteNote removes a note
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	return s.remove(ctx, storage.TableNotes, id)
}
