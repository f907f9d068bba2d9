package services

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is what HTML5 date inputs submit
const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(dateStr string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}
	return parsed, nil
}

// ParseDateRange reads an inclusive from/to day filter. A bad or empty
// bound is left zero. The upper bound is the last instant of its day.
func ParseDateRange(from, to string) (start, end time.Time) {
	if t, err := ParseDate(from); err == nil {
		start = t
	}
	if t, err := ParseDate(to); err == nil {
		end = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		start, end = end.Truncate(24*time.Hour), start.Add(24*time.Hour-time.Nanosecond)
	}
	return start, end
}
