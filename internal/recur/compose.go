// Package recur turns a reminder's due date, time and recurrence rule into
// concrete occurrence instants. Everything here is a pure function of its
// inputs plus an explicit "now"; no system clock is read.
package recur

import (
	"errors"
	"fmt"
	"time"

	"remindcal/internal/model"
	"remindcal/internal/tz"
)

// ErrInvalidTimeFormat is returned for malformed "HH:MM" strings.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// ErrInvalidRecurrenceRule is returned for rules with a non-positive
// interval, a missing end-condition field, or out-of-range weekday values.
var ErrInvalidRecurrenceRule = errors.New("invalid recurrence rule")

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
		}
	}
	hour = int(s[0]-'0')*10 + int(s[1]-'0')
	minute = int(s[3]-'0')*10 + int(s[4]-'0')
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return hour, minute, nil
}

// ComposeDueInstant combines a calendar date, an optional "HH:MM" time of
// day and a timezone into the absolute due instant (UTC). An empty dueTime
// anchors the reminder at local midnight, which keeps date-only reminders
// comparable and orderable.
func ComposeDueInstant(dueDate model.Date, dueTime string, tzID string) (time.Time, error) {
	loc, err := tz.Location(tzID)
	if err != nil {
		return time.Time{}, err
	}

	var hour, minute int
	if dueTime != "" {
		hour, minute, err = ParseClock(dueTime)
		if err != nil {
			return time.Time{}, err
		}
	}

	local := tz.LocalDateTime{
		Year:   dueDate.Year,
		Month:  dueDate.Month,
		Day:    dueDate.Day,
		Hour:   hour,
		Minute: minute,
	}
	return tz.FromLocation(local, loc), nil
}
