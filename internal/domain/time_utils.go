package domain

import (
	"fmt"
	"time"
)

const (
	DatetimeLayout = "2006-01-02T15:04:05Z"
	OnlyDate       = "2006-01-02"
	DisplayDate    = "Mon 2 Jan"
)

// StartOfDay returns midnight of the given date in its own location
func StartOfDay(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location())
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC
func ParseDate(value string) (*time.Time, error) {
	t, err := time.Parse(OnlyDate, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return &t, nil
}

// AddDays shifts a calendar date by n days
func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

// FormatDuration renders minutes as "10h 5m"
func FormatDuration(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
