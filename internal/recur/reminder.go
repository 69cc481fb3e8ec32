package recur

import (
	"time"

	"remindcal/internal/model"
	"remindcal/internal/tz"
)

// ExpandReminder runs the full pipeline for one reminder: resolve its zone
// (falling back to the device zone when unset), compose the anchor due
// instant, and expand the recurrence bounded by maxCount.
func ExpandReminder(rem model.ReminderAnchor, now time.Time, maxCount int) ([]model.Occurrence, error) {
	tzID := rem.Timezone
	if tzID == "" {
		tzID = tz.DeviceZone()
	}
	loc, err := tz.Location(tzID)
	if err != nil {
		return nil, err
	}

	anchor, err := ComposeDueInstant(rem.DueDate, rem.DueTime, tzID)
	if err != nil {
		return nil, err
	}

	return Expand(anchor, rem.Recurrence, ExpandOptions{
		Location: loc,
		Now:      now,
		MaxCount: maxCount,
	})
}
