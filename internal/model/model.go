package model

import (
	"fmt"
	"time"
)

// Pattern describes how a reminder repeats. The zero value ("") is treated
// the same as PatternNone everywhere.
type Pattern string

const (
	PatternNone    Pattern = "none"
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
	PatternYearly  Pattern = "yearly"
	// PatternCustom currently behaves like PatternDaily with the interval
	// interpreted in days. Reserved for distinct semantics later.
	PatternCustom Pattern = "custom"
)

// EndCondition describes when a recurrence stops producing occurrences.
type EndCondition string

const (
	EndNever            EndCondition = "never"
	EndOnDate           EndCondition = "on_date"
	EndAfterOccurrences EndCondition = "after_occurrences"
)

// OffsetRelation positions a notification relative to the due instant.
type OffsetRelation string

const (
	RelationBefore OffsetRelation = "before"
	RelationAfter  OffsetRelation = "after"
	RelationExact  OffsetRelation = "exact"
)

// RecurrenceRule is the validated recurrence shape the engine operates on.
// Weekdays use 0=Sunday .. 6=Saturday and are meaningful only for
// PatternWeekly; an empty set means "the anchor's own weekday".
type RecurrenceRule struct {
	Pattern  Pattern `yaml:"pattern" json:"pattern"`
	Interval int     `yaml:"interval" json:"interval"`
	Weekdays []int   `yaml:"weekdays,omitempty" json:"weekdays,omitempty"`

	EndCondition   EndCondition `yaml:"end_condition,omitempty" json:"end_condition,omitempty"`
	EndDate        *time.Time   `yaml:"end_date,omitempty" json:"end_date,omitempty"`
	EndOccurrences int          `yaml:"end_occurrences,omitempty" json:"end_occurrences,omitempty"`
}

// IsRecurring reports whether the rule produces occurrences beyond the anchor.
func (r RecurrenceRule) IsRecurring() bool {
	return r.Pattern != "" && r.Pattern != PatternNone
}

// NotificationOffset describes one notification relative to a due instant.
// Minutes is ignored when Relation is RelationExact.
type NotificationOffset struct {
	Relation OffsetRelation `yaml:"relation" json:"relation"`
	Minutes  int            `yaml:"minutes,omitempty" json:"minutes,omitempty"`
	Label    string         `yaml:"label,omitempty" json:"label,omitempty"`
}

// Date is a plain calendar date with no time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday returns the Go weekday of the date (Sunday=0).
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ReminderAnchor is the minimal reminder shape the engine consumes.
// ID and Title are owned by the caller and passed through unchanged.
type ReminderAnchor struct {
	ID    string
	Title string

	DueDate Date
	// DueTime is an optional "HH:MM" 24-hour string. Empty means the
	// reminder is date-only and anchors at local midnight.
	DueTime string
	// Timezone is an IANA identifier. Empty means the device zone.
	Timezone string

	Recurrence RecurrenceRule
	Offsets    []NotificationOffset
}

// Occurrence is one concrete instance produced by recurrence expansion.
// Instant is always UTC internally; callers project it for display.
type Occurrence struct {
	// Index is the zero-based position in the expansion. Index 0 is the
	// anchor occurrence itself.
	Index   int
	Instant time.Time
	// NextUpcoming is true for exactly one occurrence per expansion: the
	// earliest whose instant is >= the expansion-time "now". False for all
	// if every occurrence is already past.
	NextUpcoming bool
}

// ScheduledNotification is one computed notification fire time.
type ScheduledNotification struct {
	OccurrenceIndex int
	Offset          NotificationOffset
	// FireAt is the absolute fire instant, UTC. Never at or before the
	// "now" the schedule was computed against.
	FireAt time.Time
}
