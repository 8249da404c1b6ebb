package library

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bookshelf/internal/chart"
	"bookshelf/internal/models"
	"bookshelf/internal/notify"
	"bookshelf/internal/storage"
	"bookshelf/internal/storage/stubs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc   *Service
	db    *stubs.MockDB
	hub   *notify.Hub
	clock *time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := stubs.NewMockDB()
	hub := notify.NewHub(zap.NewNop())
	now := time.Date(2024, 6, 13, 10, 0, 0, 0, time.UTC) // Thursday
	seq := 0

	base := []Option{
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	}
	svc := New(db, hub, zap.NewNop(), append(base, opts...)...)
	return &fixture{svc: svc, db: db, hub: hub, clock: &now}
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func readingBook(t *testing.T, f *fixture, user string, total, read int) models.Book {
	t.Helper()
	status := models.StatusReading
	started := *f.clock
	book, err := f.svc.AddBook(context.Background(), user, models.BookInput{
		Title:       models.String("Dune"),
		Author:      models.String("Frank Herbert"),
		Status:      &status,
		TotalPages:  models.Int(total),
		ReadPages:   models.Int(read),
		StartedDate: &started,
	})
	require.NoError(t, err)
	return book
}

func logs(t *testing.T, f *fixture, user string) []models.ReadingLogEntry {
	t.Helper()
	entries, err := f.db.ListReadingLogs(context.Background(), models.LogQuery{UserID: user, Ascending: true})
	require.NoError(t, err)
	return entries
}

func TestAddBook_Defaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book, err := f.svc.AddBook(ctx, "u1", models.BookInput{
		Title:     models.String("  Emma "),
		Author:    models.String("Jane Austen"),
		ReadPages: models.Int(40),
	})
	require.NoError(t, err)
	assert.Equal(t, "Emma", book.Title)
	assert.Equal(t, models.StatusUnread, book.Status)
	assert.Equal(t, 0, book.ReadPages, "read pages only apply while reading")

	stored, err := f.svc.GetBook(ctx, "u1", book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, stored.ID)
}

func TestAddBook_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reading := models.StatusReading
	bogus := models.BookStatus("lost")
	started := *f.clock

	testCases := []struct {
		name string
		in   models.BookInput
	}{
		{"missing title", models.BookInput{Author: models.String("a")}},
		{"missing author", models.BookInput{Title: models.String("t")}},
		{"unknown status", models.BookInput{Title: models.String("t"), Author: models.String("a"), Status: &bogus}},
		{"reading without total pages", models.BookInput{Title: models.String("t"), Author: models.String("a"), Status: &reading, StartedDate: &started}},
		{"reading without start date", models.BookInput{Title: models.String("t"), Author: models.String("a"), Status: &reading, TotalPages: models.Int(100)}},
		{"read beyond total", models.BookInput{Title: models.String("t"), Author: models.String("a"), Status: &reading,
			TotalPages: models.Int(100), ReadPages: models.Int(101), StartedDate: &started}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddBook(ctx, "u1", tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestGetBook_OtherUserIsNotFound(t *testing.T) {
	f := newFixture(t)
	book := readingBook(t, f, "u1", 300, 0)

	_, err := f.svc.GetBook(context.Background(), "u2", book.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateProgress_LogsOnlyGains(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 300, 10)
	assert.Empty(t, logs(t, f, "u1"), "adding a book does not log")

	_, err := f.svc.UpdateProgress(ctx, "u1", book.ID, 40)
	require.NoError(t, err)
	f.advance(time.Hour)

	updated, err := f.svc.UpdateProgress(ctx, "u1", book.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, updated.ReadPages)

	_, err = f.svc.UpdateProgress(ctx, "u1", book.ID, 25)
	require.NoError(t, err)

	_, err = f.svc.UpdateProgress(ctx, "u1", book.ID, 70)
	require.NoError(t, err)

	entries := logs(t, f, "u1")
	require.Len(t, entries, 2)
	assert.Equal(t, 30, entries[0].PagesRead)
	assert.Equal(t, 45, entries[1].PagesRead)
	assert.Equal(t, book.ID, entries[1].BookID)
}

func TestUpdateProgress_StartsUnreadBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book, err := f.svc.AddBook(ctx, "u1", models.BookInput{
		Title: models.String("Emma"), Author: models.String("Austen"), TotalPages: models.Int(200),
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateProgress(ctx, "u1", book.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReading, updated.Status)
	require.NotNil(t, updated.StartedDate)

	entries := logs(t, f, "u1")
	require.Len(t, entries, 1)
	assert.Equal(t, 12, entries[0].PagesRead)
}

func TestUpdateProgress_StatusRoundTripDoesNotRelogPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 300, 0)

	_, err := f.svc.UpdateProgress(ctx, "u1", book.ID, 100)
	require.NoError(t, err)

	unread := models.StatusUnread
	paused, err := f.svc.EditBook(ctx, "u1", book.ID, models.BookInput{Status: &unread})
	require.NoError(t, err)
	assert.Equal(t, 100, paused.ReadPages)

	_, err = f.svc.UpdateProgress(ctx, "u1", book.ID, 120)
	require.NoError(t, err)

	entries := logs(t, f, "u1")
	require.Len(t, entries, 2)
	assert.Equal(t, 100, entries[0].PagesRead)
	assert.Equal(t, 20, entries[1].PagesRead)

	total := 0
	for _, e := range entries {
		total += e.PagesRead
	}
	assert.Equal(t, 120, total, "pages already read are logged once")
}

func TestUpdateProgress_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 100, 0)

	_, err := f.svc.UpdateProgress(ctx, "u1", book.ID, 101)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.UpdateProgress(ctx, "u1", book.ID, -1)
	assert.ErrorIs(t, err, ErrValidation)

	noPages, err := f.svc.AddBook(ctx, "u1", models.BookInput{Title: models.String("x"), Author: models.String("y")})
	require.NoError(t, err)
	_, err = f.svc.UpdateProgress(ctx, "u1", noPages.ID, 3)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, logs(t, f, "u1"))
}

func TestEditBook_LogsReadPagesIncrease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 300, 50)

	updated, err := f.svc.EditBook(ctx, "u1", book.ID, models.BookInput{ReadPages: models.Int(80), Genre: models.String("sci-fi")})
	require.NoError(t, err)
	assert.Equal(t, 80, updated.ReadPages)
	assert.Equal(t, "sci-fi", updated.Genre)

	entries := logs(t, f, "u1")
	require.Len(t, entries, 1)
	assert.Equal(t, 30, entries[0].PagesRead)

	completed := models.StatusCompleted
	_, err = f.svc.EditBook(ctx, "u1", book.ID, models.BookInput{Status: &completed, ReadPages: models.Int(300)})
	require.NoError(t, err)
	assert.Len(t, logs(t, f, "u1"), 1, "finished books do not log")

	_, err = f.svc.EditBook(ctx, "u1", book.ID, models.BookInput{Title: models.String(" ")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRemoveBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 300, 0)

	assert.ErrorIs(t, f.svc.RemoveBook(ctx, "u2", book.ID), storage.ErrNotFound)
	require.NoError(t, f.svc.RemoveBook(ctx, "u1", book.ID))
	_, err := f.svc.GetBook(ctx, "u1", book.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStatsAndListByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	completed := models.StatusCompleted

	readingBook(t, f, "u1", 300, 0)
	_, err := f.svc.AddBook(ctx, "u1", models.BookInput{Title: models.String("a"), Author: models.String("b")})
	require.NoError(t, err)
	_, err = f.svc.AddBook(ctx, "u1", models.BookInput{Title: models.String("c"), Author: models.String("d"), Status: &completed})
	require.NoError(t, err)
	_, err = f.svc.AddBook(ctx, "u2", models.BookInput{Title: models.String("e"), Author: models.String("f")})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.BookStats{TotalBooks: 3, CompletedBooks: 1, UnreadBooks: 1}, stats)

	reading, err := f.svc.ListBooks(ctx, "u1", models.StatusReading)
	require.NoError(t, err)
	require.Len(t, reading, 1)
	assert.Equal(t, "Dune", reading[0].Title)

	all, err := f.svc.ListBooks(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMutationsPublishEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var events []notify.Event
	record := func(ctx context.Context, ev notify.Event) { events = append(events, ev) }
	f.hub.Subscribe(storage.TableBooks, record)
	f.hub.Subscribe(storage.TableReadingLogs, record)

	book := readingBook(t, f, "u1", 300, 0)
	_, err := f.svc.UpdateProgress(ctx, "u1", book.ID, 10)
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, notify.Event{Table: storage.TableBooks, Op: notify.OpInsert, UserID: "u1", ID: book.ID}, events[0])
	assert.Equal(t, notify.OpUpdate, events[1].Op)
	assert.Equal(t, storage.TableReadingLogs, events[2].Table)
}

func TestGoals_CreateTrackAndToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 300, 0)

	pages := models.GoalPages
	monthly := models.Monthly
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	goal, err := f.svc.CreateGoal(ctx, "u1", models.GoalInput{
		Title: models.String("Monthly pages"), Type: &pages, Period: &monthly,
		TargetValue: models.Int(100), StartDate: &start, EndDate: &end,
	})
	require.NoError(t, err)
	assert.True(t, goal.IsActive)

	_, err = f.svc.UpdateProgress(ctx, "u1", book.ID, 30)
	require.NoError(t, err)
	_, err = f.svc.UpdateProgress(ctx, "u1", book.ID, 75)
	require.NoError(t, err)

	got, err := f.svc.GoalProgress(ctx, "u1", goal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GoalProgress{Progress: 75, Percentage: 75}, got.Progress)

	_, err = f.svc.SetGoalActive(ctx, "u1", goal.ID, false)
	require.NoError(t, err)

	active, err := f.svc.ListGoals(ctx, "u1", true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := f.svc.ListGoals(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Goal.IsActive)
	assert.Equal(t, 75, all[0].Progress.Progress)
}

func TestGoals_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pages := models.GoalPages
	yearly := models.Period("yearly")
	weekly := models.Weekly
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	valid := func() models.GoalInput {
		return models.GoalInput{
			Title: models.String("g"), Type: &pages, Period: &weekly,
			TargetValue: models.Int(5), StartDate: &start, EndDate: &end,
		}
	}

	testCases := []struct {
		name   string
		mutate func(*models.GoalInput)
	}{
		{"missing title", func(in *models.GoalInput) { in.Title = nil }},
		{"unknown type", func(in *models.GoalInput) { bad := models.GoalType("minutes"); in.Type = &bad }},
		{"unknown period", func(in *models.GoalInput) { in.Period = &yearly }},
		{"zero target", func(in *models.GoalInput) { in.TargetValue = models.Int(0) }},
		{"missing end", func(in *models.GoalInput) { in.EndDate = nil }},
		{"end before start", func(in *models.GoalInput) { early := start.AddDate(0, 0, -1); in.EndDate = &early }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid()
			tc.mutate(&in)
			_, err := f.svc.CreateGoal(ctx, "u1", in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	goal, err := f.svc.CreateGoal(ctx, "u1", valid())
	require.NoError(t, err)
	_, err = f.svc.EditGoal(ctx, "u1", goal.ID, models.GoalInput{TargetValue: models.Int(-2)})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.EditGoal(ctx, "u2", goal.ID, models.GoalInput{TargetValue: models.Int(2)})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListGoals_StoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("store unreachable")
	f.db.Fail(boom)

	_, err := f.svc.ListGoals(context.Background(), "u1", false)
	assert.ErrorIs(t, err, boom)
}

func TestLoans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 300, 0)

	_, err := f.svc.LendBook(ctx, "u1", book.ID, " ", time.Time{}, "")
	assert.ErrorIs(t, err, ErrValidation)

	loan, err := f.svc.LendBook(ctx, "u1", book.ID, "Sara", time.Time{}, "back by Friday")
	require.NoError(t, err)
	assert.Equal(t, "Dune", loan.BookTitle)
	assert.True(t, f.clock.Equal(loan.BorrowedAt))

	_, err = f.svc.LendBook(ctx, "u1", book.ID, "Ali", time.Time{}, "")
	assert.ErrorIs(t, err, ErrBookLoaned)

	open, err := f.svc.ListLoans(ctx, "u1", true)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	returned, err := f.svc.ReturnLoan(ctx, "u1", loan.ID)
	require.NoError(t, err)
	assert.True(t, returned.IsReturned)

	open, err = f.svc.ListLoans(ctx, "u1", true)
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = f.svc.LendBook(ctx, "u1", book.ID, "Ali", time.Time{}, "")
	require.NoError(t, err)

	all, err := f.svc.ListLoans(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, f.svc.RemoveLoan(ctx, "u2", loan.ID), storage.ErrNotFound)
	require.NoError(t, f.svc.RemoveLoan(ctx, "u1", loan.ID))
}

func TestQuotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 300, 0)

	_, err := f.svc.AddQuote(ctx, "u1", book.ID, models.QuoteInput{Text: models.String("  ")})
	assert.ErrorIs(t, err, ErrValidation)

	q, err := f.svc.AddQuote(ctx, "u1", book.ID, models.QuoteInput{Text: models.String("Fear is the mind-killer"), Page: models.Int(0)})
	require.NoError(t, err)
	assert.Equal(t, "Dune", q.Title)
	assert.Nil(t, q.Page)

	edited, err := f.svc.EditQuote(ctx, "u1", q.ID, models.QuoteInput{Page: models.Int(8)})
	require.NoError(t, err)
	require.NotNil(t, edited.Page)
	assert.Equal(t, 8, *edited.Page)
	assert.Equal(t, "Fear is the mind-killer", edited.Text)

	_, err = f.svc.EditQuote(ctx, "u2", q.ID, models.QuoteInput{Page: models.Int(9)})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	quotes, err := f.svc.ListQuotes(ctx, "u1", book.ID)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.NotNil(t, quotes[0].Page)
	assert.Equal(t, 8, *quotes[0].Page)

	require.NoError(t, f.svc.RemoveQuote(ctx, "u1", q.ID))
	_, ok, err := f.svc.DailyQuote(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDailyQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 300, 0)

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.svc.AddQuote(ctx, "u1", book.ID, models.QuoteInput{Text: models.String(text)})
		require.NoError(t, err)
		f.advance(time.Minute)
	}

	quotes, err := f.svc.ListQuotes(ctx, "u1", "")
	require.NoError(t, err)

	// every id starts with 'i' (105); day 13 gives (3*105 + 13) % 3 = 1
	q, ok, err := f.svc.DailyQuote(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, quotes[1].ID, q.ID)

	again, _, err := f.svc.DailyQuote(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, q.ID, again.ID, "same quote all day")

	f.advance(24 * time.Hour)
	next, _, err := f.svc.DailyQuote(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, quotes[2].ID, next.ID)
}

func TestDailyIndex(t *testing.T) {
	quotes := []models.Quote{{ID: "a"}, {ID: "b"}}
	// 97 + 98 + 1 = 196
	assert.Equal(t, 0, DailyIndex(quotes, 1))
	assert.Equal(t, 1, DailyIndex(quotes, 2))
}

func TestNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 300, 0)

	_, err := f.svc.AddNote(ctx, "u1", book.ID, models.NoteInput{Title: models.String("only title")})
	assert.ErrorIs(t, err, ErrValidation)

	note, err := f.svc.AddNote(ctx, "u1", book.ID, models.NoteInput{Title: models.String("Arrakis"), Content: models.String("desert planet")})
	require.NoError(t, err)

	edited, err := f.svc.EditNote(ctx, "u1", note.ID, models.NoteInput{Content: models.String("spice")})
	require.NoError(t, err)
	assert.Equal(t, "Arrakis", edited.Title)
	assert.Equal(t, "spice", edited.Content)

	_, err = f.svc.ListNotes(ctx, "u2", book.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	notes, err := f.svc.ListNotes(ctx, "u1", book.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "spice", notes[0].Content)

	require.NoError(t, f.svc.RemoveNote(ctx, "u1", note.ID))
	assert.ErrorIs(t, f.svc.RemoveNote(ctx, "u1", note.ID), storage.ErrNotFound)
}

func TestChart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := readingBook(t, f, "u1", 500, 0)

	_, err := f.svc.UpdateProgress(ctx, "u1", book.ID, 10)
	require.NoError(t, err)
	f.advance(2 * time.Hour)
	_, err = f.svc.UpdateProgress(ctx, "u1", book.ID, 30)
	require.NoError(t, err)

	points, err := f.svc.Chart(ctx, "u1", models.Daily)
	require.NoError(t, err)
	assert.Equal(t, []models.ChartPoint{{Label: "2024/06/13", Value: 30}}, points)
}

func TestChart_FillEmptyWithCustomLabels(t *testing.T) {
	f := newFixture(t, WithChart(chart.Aggregator{
		FillEmpty: true,
		Format:    func(t time.Time) string { return t.Format("01-02") },
	}))
	ctx := context.Background()
	book := readingBook(t, f, "u1", 500, 0)

	_, err := f.svc.UpdateProgress(ctx, "u1", book.ID, 10)
	require.NoError(t, err)

	points, err := f.svc.Chart(ctx, "u1", models.Daily)
	require.NoError(t, err)
	require.Len(t, points, 7)
	assert.Equal(t, models.ChartPoint{Label: "06-07", Value: 0}, points[0])
	assert.Equal(t, models.ChartPoint{Label: "06-13", Value: 10}, points[6])
}
