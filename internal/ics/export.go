// Package ics maps reminders to and from iCalendar for interchange with
// external calendar consumers.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"remindcal/internal/model"
	"remindcal/internal/recur"
	"remindcal/internal/tz"
)

// ReminderEvents pairs a reminder with its expanded occurrences.
type ReminderEvents struct {
	Reminder    model.ReminderAnchor
	Occurrences []model.Occurrence
}

// ExportOccurrences renders expanded occurrences as one VEVENT each. This
// is the faithful feed: consumers see exactly the instants the engine
// computed, including clamped month-end occurrences that an RRULE
// re-expansion would skip. Notification offsets become VALARMs on every
// instance.
func ExportOccurrences(items []ReminderEvents, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//remindcal//EN")

	for _, item := range items {
		rem := item.Reminder
		loc := tz.LocationOrDevice(rem.Timezone)
		for _, occ := range item.Occurrences {
			// Per-instance UID, keyed by the occurrence instant.
			uid := fmt.Sprintf("%s/%s", rem.ID, occ.Instant.UTC().Format("20060102T150405Z"))
			ev := cal.AddEvent(uid)
			ev.SetDtStampTime(now.UTC())
			ev.SetSummary(rem.Title)
			if rem.DueTime == "" {
				// DATE values carry no zone. A date-only occurrence anchors
				// at local midnight, which in a positive-offset zone is the
				// previous day in UTC, so the date must be formatted from
				// the reminder's zone.
				ev.SetAllDayStartAt(occ.Instant.In(loc))
			} else {
				ev.SetStartAt(occ.Instant.UTC())
			}
			addAlarms(ev, rem.Offsets)
		}
	}
	return cal
}

// ExportRules renders one VEVENT per reminder carrying its RRULE, for
// consumers that prefer to expand recurrence themselves. See
// recur.ToRRuleString for the month-clamping caveat of this mapping.
func ExportRules(anchors []model.ReminderAnchor, now time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//remindcal//EN")

	for _, rem := range anchors {
		anchor, err := recur.ComposeDueInstant(rem.DueDate, rem.DueTime, rem.Timezone)
		if err != nil {
			return nil, fmt.Errorf("reminder %s: %w", rem.ID, err)
		}

		ev := cal.AddEvent(rem.ID)
		ev.SetDtStampTime(now.UTC())
		ev.SetSummary(rem.Title)
		if rem.DueTime == "" {
			ev.SetAllDayStartAt(anchor.In(tz.LocationOrDevice(rem.Timezone)))
		} else {
			ev.SetStartAt(anchor.UTC())
		}

		if rem.Recurrence.IsRecurring() {
			rule, err := recur.ToRRuleString(rem.Recurrence)
			if err != nil {
				return nil, fmt.Errorf("reminder %s: %w", rem.ID, err)
			}
			ev.AddRrule(rule)
		}

		addAlarms(ev, rem.Offsets)
	}
	return cal, nil
}

func addAlarms(ev *ical.VEvent, offsets []model.NotificationOffset) {
	for _, off := range offsets {
		alarm := ev.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger(triggerValue(off))
	}
}

// triggerValue renders an offset as an ISO 8601 duration trigger:
// 15 minutes before -> "-PT15M", at due time -> "PT0S".
func triggerValue(off model.NotificationOffset) string {
	switch off.Relation {
	case model.RelationBefore:
		return fmt.Sprintf("-PT%dM", off.Minutes)
	case model.RelationAfter:
		return fmt.Sprintf("PT%dM", off.Minutes)
	default:
		return "PT0S"
	}
}
