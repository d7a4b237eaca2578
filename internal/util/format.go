package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"worldwise/internal/model"
)

// ErrInvalidDate is returned by ParseDateInput when no known layout matches.
var ErrInvalidDate = errors.New("invalid date format")

// FormatDate formats a visit date for display, e.g. "October 31, 2027".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("January 2, 2006")
}

// FormatDateLong includes the weekday, e.g. "Sunday, October 31, 2027".
func FormatDateLong(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("Monday, January 2, 2006")
}

// FormatDateHuman formats a date with humanized relative display.
// "Today", "Yesterday", "3d ago", "Jan 15", "Jan 15 '24"
func FormatDateHuman(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dateDay := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(dateDay).Hours() / 24)

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days > 1 && days < 7:
		return fmt.Sprintf("%dd ago", days)
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("Jan 02 '06")
	}
}

// ParseDateInput parses flexible user input into a date at midnight UTC.
// Empty input returns the zero time.
func ParseDateInput(input string) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, nil
	}

	layouts := []string{
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
		"1/2/2006",
		"01/02/2006",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// TodayISO returns today's date in ISO 8601 format (YYYY-MM-DD).
func TodayISO() string {
	return time.Now().Format("2006-01-02")
}

// FormatPosition renders a coordinate as "48.850, 2.350".
func FormatPosition(pos model.Position) string {
	return strconv.FormatFloat(pos.Lat, 'f', 3, 64) + ", " + strconv.FormatFloat(pos.Lng, 'f', 3, 64)
}

// TruncateString truncates a string to maxLen and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
