package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastWeek(t *testing.T) {
	tests := []struct {
		year     int
		expected int
	}{
		{year: 2015, expected: 53},
		{year: 2016, expected: 52},
		{year: 2020, expected: 53},
		{year: 2021, expected: 52},
		{year: 2024, expected: 52},
		{year: 2025, expected: 52},
		{year: 2026, expected: 53},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, LastWeek(tt.year), "year %d", tt.year)
	}
}

func TestWeekWindow(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		week  int
		start string
		end   string
	}{
		{name: "first week of 2025 starts in prior year", year: 2025, week: 1, start: "2024-12-30", end: "2025-01-05"},
		{name: "mid-year week", year: 2025, week: 23, start: "2025-06-02", end: "2025-06-08"},
		{name: "last week of 2020 (53-week year)", year: 2020, week: 53, start: "2020-12-28", end: "2021-01-03"},
		{name: "week 1 of 2021 equals week 53 end + 1", year: 2021, week: 1, start: "2021-01-04", end: "2021-01-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := WeekWindow(tt.year, tt.week)
			require.NoError(t, err)

			assert.Equal(t, tt.start, w.Start.Format("2006-01-02"))
			assert.Equal(t, tt.end, w.End.Format("2006-01-02"))
			assert.Equal(t, time.Monday, w.Start.Weekday())
			assert.Equal(t, time.Sunday, w.End.Weekday())
		})
	}
}

func TestWeekWindow_OutOfRange(t *testing.T) {
	_, err := WeekWindow(2025, 53)
	assert.ErrorIs(t, err, ErrWeekOutOfRange, "2025 only has 52 ISO weeks")

	_, err = WeekWindow(2025, 0)
	assert.ErrorIs(t, err, ErrWeekOutOfRange)

	_, err = WeekWindow(2020, 53)
	assert.NoError(t, err, "2020 has 53 ISO weeks")
}

func TestWeekWindow_ConsecutiveWeeksAreContiguous(t *testing.T) {
	year := 2025
	for week := 1; week < LastWeek(year); week++ {
		current, err := WeekWindow(year, week)
		require.NoError(t, err)

		next, err := WeekWindow(year, week+1)
		require.NoError(t, err)

		assert.Equal(t, current.End.AddDate(0, 0, 1), next.Start,
			"week %d end must be adjacent to week %d start", week, week+1)
	}
}

func TestMonthWindow(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month int
		start string
		end   string
	}{
		{name: "31-day month", year: 2025, month: 10, start: "2025-10-01", end: "2025-10-31"},
		{name: "february leap year", year: 2024, month: 2, start: "2024-02-01", end: "2024-02-29"},
		{name: "february non-leap", year: 2025, month: 2, start: "2025-02-01", end: "2025-02-28"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := MonthWindow(tt.year, tt.month)
			require.NoError(t, err)

			assert.Equal(t, tt.start, w.Start.Format("2006-01-02"))
			assert.Equal(t, tt.end, w.End.Format("2006-01-02"))
		})
	}

	_, err := MonthWindow(2025, 13)
	assert.ErrorIs(t, err, ErrMonthOutOfRange)

	_, err = MonthWindow(2025, 0)
	assert.ErrorIs(t, err, ErrMonthOutOfRange)
}

func TestYearWindow(t *testing.T) {
	w := YearWindow(2025)

	assert.Equal(t, "2025-01-01", w.Start.Format("2006-01-02"))
	assert.Equal(t, "2025-12-31", w.End.Format("2006-01-02"))
}

func TestNextWeek(t *testing.T) {
	assert.Equal(t, Week{Year: 2025, Week: 8}, NextWeek(Week{Year: 2025, Week: 7}))
	assert.Equal(t, Week{Year: 2026, Week: 1}, NextWeek(Week{Year: 2025, Week: 52}))
	assert.Equal(t, Week{Year: 2021, Week: 1}, NextWeek(Week{Year: 2020, Week: 53}))
}

func TestWindowContains(t *testing.T) {
	w, err := MonthWindow(2025, 10)
	require.NoError(t, err)

	assert.True(t, w.Contains(time.Date(2025, 10, 1, 15, 4, 5, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWeekKey(t *testing.T) {
	assert.Equal(t, "2025-W07", Week{Year: 2025, Week: 7}.Key())
	assert.Equal(t, "2020-W53", Week{Year: 2020, Week: 53}.Key())
	assert.Equal(t, "2025-03", Month{Year: 2025, Month: 3}.Key())
}
