// Package progress computes how far a reading goal has come within its current period.
package progress

import (
	"context"
	"fmt"
	"math"
	"time"

	"bookshelf/internal/models"
	"bookshelf/internal/period"
)

// LogReader is the slice of storage the calculator needs
type LogReader interface {
	ListReadingLogs(ctx context.Context, q models.LogQuery) ([]models.ReadingLogEntry, error)
}

// Calculator computes goal progress from the reading log
type Calculator struct {
	logs     LogReader
	resolver period.Resolver
	now      func() time.Time
}

// Option configures a Calculator
type Option func(*Calculator)

// WithClock replaces the wall clock, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		c.now = now
	}
}

// WithResolver sets the period resolver, e.g. to change the first day of the week
func WithResolver(r period.Resolver) Option {
	return func(c *Calculator) {
		c.resolver = r
	}
}

// NewCalculator creates a calculator reading from logs
func NewCalculator(logs LogReader, opts ...Option) *Calculator {
	c := &Calculator{
		logs:     logs,
		resolver: period.Resolver{WeekStart: time.Sunday},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute returns the goal's progress for the period-to-date window ending now.
// An unknown period yields zero progress. Store failures are returned to the caller.
func (c *Calculator) Compute(ctx context.Context, goal models.Goal) (models.GoalProgress, error) {
	return c.ComputeAt(ctx, goal, c.now())
}

// ComputeAt is Compute with an explicit reference instant
func (c *Calculator) ComputeAt(ctx context.Context, goal models.Goal, now time.Time) (models.GoalProgress, error) {
	window, ok := c.resolver.Resolve(goal.Period, now)
	if !ok {
		return models.GoalProgress{}, nil
	}

	entries, err := c.logs.ListReadingLogs(ctx, models.LogQuery{
		UserID: goal.UserID,
		From:   window.From,
		To:     window.To,
	})
	if err != nil {
		return models.GoalProgress{}, fmt.Errorf("failed to load reading logs for goal %s: %w", goal.ID, err)
	}

	var value int
	switch goal.Type {
	case models.GoalPages:
		value = SumPages(entries)
	case models.GoalBooks:
		value = DistinctBooks(entries)
	}

	return models.GoalProgress{
		Progress:   value,
		Percentage: Percentage(value, goal.TargetValue),
	}, nil
}

// SumPages adds up pages read across entries
func SumPages(entries []models.ReadingLogEntry) int {
	total := 0
	for _, e := range entries {
		total += e.PagesRead
	}
	return total
}

// DistinctBooks counts the books that appear in entries
func DistinctBooks(entries []models.ReadingLogEntry) int {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.BookID] = struct{}{}
	}
	return len(seen)
}

// Percentage returns progress as a share of target, rounded to the nearest
// integer and capped at 100. A non-positive target yields 0.
func Percentage(progress, target int) int {
	if target <= 0 {
		return 0
	}
	pct := int(math.Round(float64(progress) / float64(target) * 100))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}
