// Package chart groups reading log entries into labelled buckets for the reading chart.
package chart

import (
	"time"

	"bookshelf/internal/models"
	"bookshelf/internal/period"
)

// Formatter renders a bucket start as its label
type Formatter func(time.Time) string

// GregorianLabel is the default label format
func GregorianLabel(t time.Time) string {
	return t.Format("2006/01/02")
}

// Aggregator buckets entries by period
type Aggregator struct {
	Resolver period.Resolver
	Format   Formatter
	// Location is the calendar used for bucketing. Nil keeps each entry's own location.
	Location *time.Location
	// FillEmpty emits every bucket of the chart window, with zero for buckets without entries.
	// Monthly buckets are then keyed by month start instead of by day.
	FillEmpty bool
}

// Aggregate buckets entries with the default aggregator
func Aggregate(entries []models.ReadingLogEntry, p models.Period) []models.ChartPoint {
	return Aggregator{Resolver: period.Resolver{WeekStart: time.Sunday}}.Aggregate(entries, p, time.Time{})
}

// Aggregate sums pages read per bucket. Without FillEmpty buckets appear in the order their
// first entry appears and buckets without entries are absent; now is only used with FillEmpty.
func (a Aggregator) Aggregate(entries []models.ReadingLogEntry, p models.Period, now time.Time) []models.ChartPoint {
	format := a.Format
	if format == nil {
		format = GregorianLabel
	}

	if a.FillEmpty {
		return a.fill(entries, p, now, format)
	}

	var (
		keys   []time.Time
		sums   = make(map[int64]int)
		points = make([]models.ChartPoint, 0)
	)
	for _, e := range entries {
		key := a.key(p, a.in(e.CreatedAt), false)
		id := key.Unix()
		if _, seen := sums[id]; !seen {
			keys = append(keys, key)
		}
		sums[id] += e.PagesRead
	}
	for _, key := range keys {
		points = append(points, models.ChartPoint{Label: format(key), Value: sums[key.Unix()]})
	}
	return points
}

func (a Aggregator) in(t time.Time) time.Time {
	if a.Location != nil {
		return t.In(a.Location)
	}
	return t
}

// key returns the bucket start for t
func (a Aggregator) key(p models.Period, t time.Time, byMonth bool) time.Time {
	switch p {
	case models.Weekly:
		return a.Resolver.StartOfWeek(t)
	case models.Daily:
		return period.StartOfDay(t)
	default:
		if byMonth {
			return period.StartOfMonth(t)
		}
		// monthly charts key entries by their own day
		return period.StartOfDay(t)
	}
}

func (a Aggregator) fill(entries []models.ReadingLogEntry, p models.Period, now time.Time, format Formatter) []models.ChartPoint {
	if a.Location != nil {
		now = now.In(a.Location)
	}
	loc := now.Location()
	window := a.Resolver.ChartWindow(p, now)

	var buckets []time.Time
	for start := window.From; !start.After(now); {
		buckets = append(buckets, start)
		switch p {
		case models.Daily:
			start = start.AddDate(0, 0, 1)
		case models.Weekly:
			start = start.AddDate(0, 0, 7)
		default:
			start = start.AddDate(0, 1, 0)
		}
	}

	sums := make(map[int64]int, len(buckets))
	for _, e := range entries {
		sums[a.key(p, e.CreatedAt.In(loc), true).Unix()] += e.PagesRead
	}

	points := make([]models.ChartPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, models.ChartPoint{Label: format(b), Value: sums[b.Unix()]})
	}
	return points
}
