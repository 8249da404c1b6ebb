package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookshelf/internal/models"
	"bookshelf/internal/storage/stubs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Thursday, mid-month
var fixedNow = time.Date(2024, 6, 13, 18, 0, 0, 0, time.UTC)

func newCalculator(db *stubs.MockDB) *Calculator {
	return NewCalculator(db, WithClock(func() time.Time { return fixedNow }))
}

func addLog(t *testing.T, db *stubs.MockDB, user, book string, pages int, at time.Time) {
	t.Helper()
	err := db.AddReadingLog(context.Background(), models.ReadingLogEntry{
		ID:        book + at.String(),
		UserID:    user,
		BookID:    book,
		PagesRead: pages,
		CreatedAt: at,
	})
	require.NoError(t, err)
}

func TestCompute_PagesGoal(t *testing.T) {
	db := stubs.NewMockDB()
	addLog(t, db, "u1", "A", 30, time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC))
	addLog(t, db, "u1", "B", 45, time.Date(2024, 6, 12, 22, 0, 0, 0, time.UTC))
	// previous month and other user are ignored
	addLog(t, db, "u1", "A", 100, time.Date(2024, 5, 31, 23, 59, 0, 0, time.UTC))
	addLog(t, db, "u2", "A", 100, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))

	goal := models.Goal{ID: "g", UserID: "u1", Type: models.GoalPages, Period: models.Monthly, TargetValue: 100}
	p, err := newCalculator(db).Compute(context.Background(), goal)
	require.NoError(t, err)
	assert.Equal(t, models.GoalProgress{Progress: 75, Percentage: 75}, p)
}

func TestCompute_BooksGoal(t *testing.T) {
	db := stubs.NewMockDB()
	// week starts Sunday 2024-06-09
	addLog(t, db, "u1", "A", 5, time.Date(2024, 6, 9, 1, 0, 0, 0, time.UTC))
	addLog(t, db, "u1", "A", 50, time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC))
	addLog(t, db, "u1", "B", 1, time.Date(2024, 6, 11, 1, 0, 0, 0, time.UTC))
	addLog(t, db, "u1", "C", 2, time.Date(2024, 6, 13, 1, 0, 0, 0, time.UTC))
	addLog(t, db, "u1", "D", 2, time.Date(2024, 6, 8, 23, 0, 0, 0, time.UTC))

	goal := models.Goal{UserID: "u1", Type: models.GoalBooks, Period: models.Weekly, TargetValue: 3}
	p, err := newCalculator(db).Compute(context.Background(), goal)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Progress)
	assert.Equal(t, 100, p.Percentage)
}

func TestCompute_UnknownPeriod(t *testing.T) {
	db := stubs.NewMockDB()
	addLog(t, db, "u1", "A", 30, fixedNow.Add(-time.Hour))

	goal := models.Goal{UserID: "u1", Type: models.GoalPages, Period: models.Period("yearly"), TargetValue: 10}
	p, err := newCalculator(db).Compute(context.Background(), goal)
	require.NoError(t, err)
	assert.Equal(t, models.GoalProgress{}, p)
}

func TestCompute_UnknownType(t *testing.T) {
	db := stubs.NewMockDB()
	addLog(t, db, "u1", "A", 30, time.Date(2024, 6, 13, 9, 0, 0, 0, time.UTC))

	goal := models.Goal{UserID: "u1", Type: models.GoalType("minutes"), Period: models.Daily, TargetValue: 10}
	p, err := newCalculator(db).Compute(context.Background(), goal)
	require.NoError(t, err)
	assert.Equal(t, models.GoalProgress{}, p)
}

func TestCompute_BoundsAreInclusive(t *testing.T) {
	db := stubs.NewMockDB()
	addLog(t, db, "u1", "A", 7, time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC))
	addLog(t, db, "u1", "A", 3, fixedNow)

	goal := models.Goal{UserID: "u1", Type: models.GoalPages, Period: models.Daily, TargetValue: 20}
	p, err := newCalculator(db).Compute(context.Background(), goal)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Progress)
	assert.Equal(t, 50, p.Percentage)
}

func TestCompute_NonPositiveTarget(t *testing.T) {
	db := stubs.NewMockDB()
	addLog(t, db, "u1", "A", 30, fixedNow.Add(-time.Minute))

	for _, target := range []int{0, -5} {
		goal := models.Goal{UserID: "u1", Type: models.GoalPages, Period: models.Daily, TargetValue: target}
		p, err := newCalculator(db).Compute(context.Background(), goal)
		require.NoError(t, err)
		assert.Equal(t, 30, p.Progress)
		assert.Equal(t, 0, p.Percentage)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	db := stubs.NewMockDB()
	addLog(t, db, "u1", "A", 12, fixedNow.Add(-time.Hour))
	addLog(t, db, "u1", "B", 9, fixedNow.Add(-2*time.Hour))

	calc := newCalculator(db)
	goal := models.Goal{UserID: "u1", Type: models.GoalBooks, Period: models.Daily, TargetValue: 4}
	first, err := calc.Compute(context.Background(), goal)
	require.NoError(t, err)
	second, err := calc.Compute(context.Background(), goal)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, models.GoalProgress{Progress: 2, Percentage: 50}, first)
}

type failingLogs struct{ err error }

func (f failingLogs) ListReadingLogs(ctx context.Context, q models.LogQuery) ([]models.ReadingLogEntry, error) {
	return nil, f.err
}

func TestCompute_StoreFailurePropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	calc := NewCalculator(failingLogs{err: storeErr})

	goal := models.Goal{UserID: "u1", Type: models.GoalPages, Period: models.Weekly, TargetValue: 10}
	_, err := calc.Compute(context.Background(), goal)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}

func TestCompute_UnknownPeriodSkipsStore(t *testing.T) {
	calc := NewCalculator(failingLogs{err: errors.New("must not be called")})

	goal := models.Goal{UserID: "u1", Type: models.GoalPages, Period: "hourly", TargetValue: 10}
	p, err := calc.Compute(context.Background(), goal)
	require.NoError(t, err)
	assert.Equal(t, models.GoalProgress{}, p)
}

func TestPercentage(t *testing.T) {
	testCases := []struct {
		name     string
		progress int
		target   int
		expected int
	}{
		{"one third rounds down", 1, 3, 33},
		{"two thirds rounds up", 2, 3, 67},
		{"half rounds away from zero", 1, 200, 1},
		{"exact", 75, 100, 75},
		{"capped", 250, 100, 100},
		{"zero progress", 0, 10, 0},
		{"zero target", 10, 0, 0},
		{"negative target", 10, -1, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Percentage(tc.progress, tc.target))
		})
	}
}

func TestPercentage_AlwaysInRange(t *testing.T) {
	for progress := 0; progress <= 300; progress += 7 {
		for target := -3; target <= 120; target += 11 {
			pct := Percentage(progress, target)
			assert.GreaterOrEqual(t, pct, 0)
			assert.LessOrEqual(t, pct, 100)
		}
	}
}
