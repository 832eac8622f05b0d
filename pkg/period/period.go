// Package period provides calendar window math for price rollups.
// Weeks follow ISO-8601 numbering: weeks start on Monday and week 1 is
// the week containing the year's first Thursday.
package period

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWeekOutOfRange is returned when a week number does not exist in the target year
	ErrWeekOutOfRange = errors.New("week number out of range for year")
	// ErrMonthOutOfRange is returned when a month is not in 1..12
	ErrMonthOutOfRange = errors.New("month must be between 1 and 12")
)

// Week identifies one ISO week.
type Week struct {
	Year int
	Week int
}

// Key returns the canonical period key, e.g. "2025-W07".
func (w Week) Key() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Week)
}

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month int
}

// Key returns the canonical period key, e.g. "2025-03".
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Window is an inclusive date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls inside the window (date precision).
func (w Window) Contains(d time.Time) bool {
	day := Day(d)

	return !day.Before(w.Start) && !day.After(w.End)
}

// Day truncates t to midnight UTC. All window math operates on UTC dates.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of the given ISO week.
func WeekStart(year, week int) (time.Time, error) {
	if week < 1 || week > LastWeek(year) {
		return time.Time{}, fmt.Errorf("%w: year %d has %d weeks, got week %d", ErrWeekOutOfRange, year, LastWeek(year), week)
	}

	// January 4 is always inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	week1Monday := mondayOf(jan4)

	return week1Monday.AddDate(0, 0, (week-1)*7), nil
}

// WeekWindow returns the Monday..Sunday window of the given ISO week.
func WeekWindow(year, week int) (Window, error) {
	start, err := WeekStart(year, week)
	if err != nil {
		return Window{}, err
	}

	return Window{Start: start, End: start.AddDate(0, 0, 6)}, nil
}

// LastWeek returns the number of ISO weeks in the year (52 or 53).
// December 28 is always inside the year's last ISO week.
func LastWeek(year int) int {
	dec28 := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC)
	_, week := dec28.ISOWeek()

	return week
}

// MonthWindow returns the first-to-last day window of the given month.
func MonthWindow(year, month int) (Window, error) {
	if month < 1 || month > 12 {
		return Window{}, fmt.Errorf("%w: got %d", ErrMonthOutOfRange, month)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	return Window{Start: start, End: end}, nil
}

// YearWindow returns the Jan 1..Dec 31 window of the given year.
func YearWindow(year int) Window {
	return Window{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// NextWeek returns the ISO week following w, crossing year boundaries.
func NextWeek(w Week) Week {
	if w.Week >= LastWeek(w.Year) {
		return Week{Year: w.Year + 1, Week: 1}
	}

	return Week{Year: w.Year, Week: w.Week + 1}
}

func mondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}

	return t.AddDate(0, 0, 1-weekday)
}
