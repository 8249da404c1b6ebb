// Package jalali formats and parses Persian (Jalali) calendar dates for display and input
// on top of go-persian-calendar. Internal date math stays on time.Time.
package jalali

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

var monthNames = [12]string{
	"فروردین", "اردیبهشت", "خرداد", "تیر", "مرداد", "شهریور",
	"مهر", "آبان", "آذر", "دی", "بهمن", "اسفند",
}

// MonthName returns the Persian name of Jalali month m (1-12)
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m-1]
}

// Date returns the Jalali year, month and day of t in t's location
func Date(t time.Time) (year, month, day int) {
	pt := ptime.New(t)
	return pt.Year(), int(pt.Month()), pt.Day()
}

// ToTime returns midnight of the Jalali date in loc
func ToTime(year, month, day int, loc *time.Location) time.Time {
	return ptime.Date(year, ptime.Month(month), day, 0, 0, 0, 0, loc).Time()
}

// IsLeap reports whether Jalali year has 30 days in Esfand
func IsLeap(year int) bool {
	return ptime.Date(year, ptime.Esfand, 1, 0, 0, 0, 0, time.UTC).IsLeap()
}

// DaysIn returns the number of days in the Jalali month
func DaysIn(year, month int) int {
	switch {
	case month <= 6:
		return 31
	case month <= 11:
		return 30
	case IsLeap(year):
		return 30
	default:
		return 29
	}
}

// Format renders t as YYYY/MM/DD in the Jalali calendar with Latin digits
func Format(t time.Time) string {
	y, m, d := Date(t)
	return fmt.Sprintf("%04d/%02d/%02d", y, m, d)
}

// FormatLong renders t as "D MonthName YYYY" in Persian digits
func FormatLong(t time.Time) string {
	y, m, d := Date(t)
	return FarsiDigits(fmt.Sprintf("%d %s %d", d, MonthName(m), y))
}

// Parse reads a YYYY/MM/DD or YYYY-MM-DD Jalali date in Latin or Persian digits
// and returns its midnight in loc
func Parse(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(LatinDigits(s))
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid jalali date %q", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid jalali date %q: %w", s, err)
		}
		nums[i] = n
	}
	y, m, d := nums[0], nums[1], nums[2]
	if m < 1 || m > 12 || d < 1 || d > DaysIn(y, m) {
		return time.Time{}, fmt.Errorf("jalali date %q out of range", s)
	}
	return ToTime(y, m, d, loc), nil
}

var (
	toFarsi = strings.NewReplacer(
		"0", "۰", "1", "۱", "2", "۲", "3", "۳", "4", "۴",
		"5", "۵", "6", "۶", "7", "۷", "8", "۸", "9", "۹",
	)
	toLatin = strings.NewReplacer(
		"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
		"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
		// Arabic-Indic digits are typed on some keyboards
		"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
		"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	)
)

// FarsiDigits replaces Latin digits with Persian ones
func FarsiDigits(s string) string {
	return toFarsi.Replace(s)
}

// LatinDigits replaces Persian and Arabic-Indic digits with Latin ones
func LatinDigits(s string) string {
	return toLatin.Replace(s)
}
