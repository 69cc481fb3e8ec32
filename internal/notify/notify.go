// Package notify computes the absolute instants at which notifications
// should fire for a set of expanded occurrences. It only computes times;
// registering OS-level alarms is the platform bridge's job.
package notify

import (
	"sort"
	"time"

	"remindcal/internal/model"
)

// ComputeSchedule derives one candidate fire time per (occurrence, offset)
// pair and keeps only those strictly after now. This is the
// stale-notification guarantee: nothing already past is ever scheduled,
// even when the occurrence itself is still upcoming but a BEFORE offset
// has elapsed.
//
// Ordering: ascending fire instant, ties broken by occurrence index, then
// by the offset's declared position in the input set. No offsets means an
// empty schedule; a reminder can legitimately have zero notifications.
func ComputeSchedule(occurrences []model.Occurrence, offsets []model.NotificationOffset, now time.Time) []model.ScheduledNotification {
	type entry struct {
		model.ScheduledNotification
		offsetOrder int
	}

	entries := make([]entry, 0, len(occurrences)*len(offsets))
	for _, occ := range occurrences {
		for i, off := range offsets {
			fire, ok := fireInstant(occ.Instant, off)
			if !ok || !fire.After(now) {
				continue
			}
			entries = append(entries, entry{
				ScheduledNotification: model.ScheduledNotification{
					OccurrenceIndex: occ.Index,
					Offset:          off,
					FireAt:          fire.UTC(),
				},
				offsetOrder: i,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.FireAt.Equal(b.FireAt) {
			return a.FireAt.Before(b.FireAt)
		}
		if a.OccurrenceIndex != b.OccurrenceIndex {
			return a.OccurrenceIndex < b.OccurrenceIndex
		}
		return a.offsetOrder < b.offsetOrder
	})

	out := make([]model.ScheduledNotification, len(entries))
	for i, e := range entries {
		out[i] = e.ScheduledNotification
	}
	return out
}

// fireInstant applies one offset to a due instant. Offsets with an
// unrecognized relation produce nothing.
func fireInstant(due time.Time, off model.NotificationOffset) (time.Time, bool) {
	d := time.Duration(off.Minutes) * time.Minute
	switch off.Relation {
	case model.RelationBefore:
		return due.Add(-d), true
	case model.RelationAfter:
		return due.Add(d), true
	case model.RelationExact:
		return due, true
	default:
		return time.Time{}, false
	}
}
