package library

import (
	"context"
	"fmt"

	"bookshelf/internal/models"
)

// Chart returns the reading chart of the user for a period. Unknown periods draw the monthly chart.
func (s *Service) Chart(ctx context.Context, userID string, p models.Period) ([]models.ChartPoint, error) {
	now := s.clock()
	window := s.resolver.ChartWindow(p, now)

	entries, err := s.store.ListReadingLogs(ctx, models.LogQuery{
		UserID:    userID,
		From:      window.From,
		To:        window.To,
		Ascending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load reading logs for chart: %w", err)
	}
	return s.charts.Aggregate(entries, p, now), nil
}
