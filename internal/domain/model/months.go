package model

import (
	"time"

	"netaccess-billing/internal/domain"
)

const maxCalendarYear = 9999

// AddMonths adds n calendar months to t, keeping the time of day and
// location. When the day of month does not exist in the target month it is
// clamped to that month's last day (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) (time.Time, error) {
	if n < 0 {
		return time.Time{}, domain.ErrInvalidArgument
	}
	total := t.Year()*12 + int(t.Month()) - 1 + n
	year, month := total/12, time.Month(total%12+1)
	if year > maxCalendarYear || total < 0 {
		return time.Time{}, domain.ErrCalendarOverflow
	}
	day := t.Day()
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), nil
}

// DaysIn returns the number of days of month in year.
func DaysIn(year int, month time.Month) int {
	// day 0 of the next month normalizes to the last day of month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
