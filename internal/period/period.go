// Package period turns a named period into concrete time windows.
//
// All calculations use the location of the reference instant, so callers control
// the calendar by choosing the location of now.
package period

import (
	"time"

	"bookshelf/internal/models"
)

// Window is a time range. Goal progress treats both bounds as inclusive.
type Window struct {
	From time.Time
	To   time.Time
}

// Resolver computes period-to-date windows
type Resolver struct {
	// WeekStart is the first day of a week. Defaults to Sunday.
	WeekStart time.Weekday
}

var defaultResolver = Resolver{WeekStart: time.Sunday}

// Resolve returns the period-to-date window for p anchored at now.
// The second result is false when p is not a known period.
func Resolve(p models.Period, now time.Time) (Window, bool) {
	return defaultResolver.Resolve(p, now)
}

// Resolve returns the period-to-date window for p anchored at now
func (r Resolver) Resolve(p models.Period, now time.Time) (Window, bool) {
	switch p {
	case models.Daily:
		return Window{From: StartOfDay(now), To: now}, true
	case models.Weekly:
		return Window{From: r.StartOfWeek(now), To: now}, true
	case models.Monthly:
		return Window{From: StartOfMonth(now), To: now}, true
	default:
		return Window{}, false
	}
}

// ChartWindow returns the rolling history window drawn by the reading chart:
// the last 7 calendar days, 6 calendar weeks or 6 calendar months, ending at now.
// Unknown periods fall back to the monthly window.
func ChartWindow(p models.Period, now time.Time) Window {
	return defaultResolver.ChartWindow(p, now)
}

// ChartWindow returns the rolling history window for p ending at now
func (r Resolver) ChartWindow(p models.Period, now time.Time) Window {
	switch p {
	case models.Daily:
		return Window{From: StartOfDay(now).AddDate(0, 0, -6), To: now}
	case models.Weekly:
		return Window{From: r.StartOfWeek(now).AddDate(0, 0, -7*5), To: now}
	default:
		return Window{From: StartOfMonth(now).AddDate(0, -5, 0), To: now}
	}
}

// StartOfWeek returns midnight of the first day of the week containing t
func (r Resolver) StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) - int(r.WeekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// StartOfWeek returns midnight of the Sunday on or before t
func StartOfWeek(t time.Time) time.Time {
	return defaultResolver.StartOfWeek(t)
}

// StartOfDay returns midnight of t's calendar day
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfMonth returns midnight of the first day of t's month
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Parse converts user input into a known period
func Parse(s string) (models.Period, bool) {
	p := models.Period(s)
	switch p {
	case models.Daily, models.Weekly, models.Monthly:
		return p, true
	}
	return "", false
}
