package recur

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindcal/internal/model"
	"remindcal/internal/tz"
)

func TestExpandReminder(t *testing.T) {
	rem := model.ReminderAnchor{
		ID:       "r1",
		Title:    "Weekly sync",
		DueDate:  model.Date{Year: 2024, Month: time.January, Day: 1},
		DueTime:  "10:00",
		Timezone: "Asia/Seoul",
		Recurrence: model.RecurrenceRule{
			Pattern:  model.PatternWeekly,
			Interval: 1,
		},
	}

	now := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	occs, err := ExpandReminder(rem, now, 3)
	require.NoError(t, err)
	require.Len(t, occs, 3)

	// 10:00 Seoul is 01:00 UTC.
	assert.True(t, occs[0].Instant.Equal(time.Date(2024, time.January, 1, 1, 0, 0, 0, time.UTC)))
	assert.True(t, occs[1].Instant.Equal(time.Date(2024, time.January, 8, 1, 0, 0, 0, time.UTC)))
	assert.True(t, occs[1].NextUpcoming)
}

func TestExpandReminderEmptyZoneUsesDevice(t *testing.T) {
	rem := model.ReminderAnchor{
		ID:      "r1",
		DueDate: model.Date{Year: 2024, Month: time.January, Day: 1},
	}
	occs, err := ExpandReminder(rem, time.Time{}, 5)
	require.NoError(t, err)
	assert.Len(t, occs, 1, "no recurrence yields the anchor alone")
}

func TestExpandReminderErrors(t *testing.T) {
	rem := model.ReminderAnchor{
		ID:       "r1",
		DueDate:  model.Date{Year: 2024, Month: time.January, Day: 1},
		Timezone: "Not/A_Zone",
	}
	_, err := ExpandReminder(rem, time.Time{}, 5)
	assert.True(t, errors.Is(err, tz.ErrInvalidTimezone))

	rem.Timezone = "UTC"
	rem.DueTime = "10am"
	_, err = ExpandReminder(rem, time.Time{}, 5)
	assert.True(t, errors.Is(err, ErrInvalidTimeFormat))
}
