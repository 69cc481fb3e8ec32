package recur

import (
	"fmt"
	"sort"
	"time"

	"remindcal/internal/model"
	"remindcal/internal/tz"
)

// DefaultMaxCount is the hard safety cap applied when ExpandOptions.MaxCount
// is not set. It guarantees termination even for never-ending rules.
const DefaultMaxCount = 50

// ExpandOptions bound and contextualize an expansion.
type ExpandOptions struct {
	// Location is the zone whose wall-clock time is preserved when stepping
	// across days, months and DST transitions. Nil means UTC.
	Location *time.Location

	// Now is the instant used to mark the next upcoming occurrence. A zero
	// Now leaves every occurrence unmarked.
	Now time.Time

	// MaxCount caps the number of emitted occurrences. Values <= 0 fall
	// back to DefaultMaxCount.
	MaxCount int
}

// ValidateRule checks a recurrence rule for the failure modes the expander
// rejects. Rules with no recurring pattern are always valid (they have no
// effect).
func ValidateRule(rule model.RecurrenceRule) error {
	if !rule.IsRecurring() {
		return nil
	}

	switch rule.Pattern {
	case model.PatternDaily, model.PatternWeekly, model.PatternMonthly, model.PatternYearly, model.PatternCustom:
	default:
		return fmt.Errorf("%w: unknown pattern %q", ErrInvalidRecurrenceRule, rule.Pattern)
	}

	if rule.Interval <= 0 {
		return fmt.Errorf("%w: interval %d", ErrInvalidRecurrenceRule, rule.Interval)
	}

	for _, wd := range rule.Weekdays {
		if wd < 0 || wd > 6 {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRecurrenceRule, wd)
		}
	}

	switch rule.EndCondition {
	case "", model.EndNever:
	case model.EndOnDate:
		if rule.EndDate == nil {
			return fmt.Errorf("%w: end_condition=on_date without end_date", ErrInvalidRecurrenceRule)
		}
	case model.EndAfterOccurrences:
		if rule.EndOccurrences <= 0 {
			return fmt.Errorf("%w: end_condition=after_occurrences with count %d", ErrInvalidRecurrenceRule, rule.EndOccurrences)
		}
	default:
		return fmt.Errorf("%w: unknown end condition %q", ErrInvalidRecurrenceRule, rule.EndCondition)
	}

	return nil
}

// Expand produces the ordered, bounded occurrence sequence for a rule
// anchored at anchor. The anchor itself is always occurrence 0, even when
// the rule yields no future occurrences (an end date before the anchor
// truncates everything after index 0, never the anchor).
//
// The local wall-clock time of day observed at the anchor in opts.Location
// is preserved for every occurrence, so a DST transition shifts the
// absolute instant rather than the displayed time.
func Expand(anchor time.Time, rule model.RecurrenceRule, opts ExpandOptions) ([]model.Occurrence, error) {
	if err := ValidateRule(rule); err != nil {
		return nil, err
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	maxCount := opts.MaxCount
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}

	limit := maxCount
	if rule.IsRecurring() && rule.EndCondition == model.EndAfterOccurrences && rule.EndOccurrences < limit {
		limit = rule.EndOccurrences
	}
	if limit < 1 {
		limit = 1
	}

	occurrences := []model.Occurrence{{Index: 0, Instant: anchor.UTC()}}

	if rule.IsRecurring() {
		anchorLocal := tz.ToLocation(anchor, loc)
		anchorDate := model.Date{Year: anchorLocal.Year, Month: anchorLocal.Month, Day: anchorLocal.Day}

		emit := func(d model.Date) bool {
			local := tz.LocalDateTime{
				Year:   d.Year,
				Month:  d.Month,
				Day:    d.Day,
				Hour:   anchorLocal.Hour,
				Minute: anchorLocal.Minute,
				Second: anchorLocal.Second,
			}
			instant := tz.FromLocation(local, loc)
			if rule.EndCondition == model.EndOnDate && instant.After(*rule.EndDate) {
				return false
			}
			occurrences = append(occurrences, model.Occurrence{Index: len(occurrences), Instant: instant})
			return len(occurrences) < limit
		}

		switch rule.Pattern {
		case model.PatternDaily, model.PatternCustom:
			stepDays(anchorDate, rule.Interval, limit, emit)
		case model.PatternWeekly:
			if len(rule.Weekdays) == 0 {
				stepDays(anchorDate, 7*rule.Interval, limit, emit)
			} else {
				stepWeekdayWindows(anchorDate, rule.Interval, rule.Weekdays, limit, emit)
			}
		case model.PatternMonthly:
			stepMonths(anchorDate, rule.Interval, limit, emit)
		case model.PatternYearly:
			stepMonths(anchorDate, 12*rule.Interval, limit, emit)
		}
	}

	markNextUpcoming(occurrences, opts.Now)
	return occurrences, nil
}

// stepDays emits anchor + k*interval days for k = 1, 2, ...
func stepDays(anchor model.Date, intervalDays, limit int, emit func(model.Date) bool) {
	for k := 1; k < limit; k++ {
		if !emit(anchor.AddDays(k * intervalDays)) {
			return
		}
	}
}

// stepWeekdayWindows emits one occurrence per requested weekday, in
// ascending weekday order, for every window of interval weeks starting at
// the anchor's week (weeks begin on Sunday, weekday index 0). Candidates on
// or before the anchor date are skipped: the anchor occupies index 0
// already, and earlier weekdays of the first window never fire.
func stepWeekdayWindows(anchor model.Date, intervalWeeks int, weekdays []int, limit int, emit func(model.Date) bool) {
	days := append([]int(nil), weekdays...)
	sort.Ints(days)

	weekStart := anchor.AddDays(-int(anchor.Weekday()))
	anchorKey := dateKey(anchor)

	// limit caps total occurrences and every window past the first emits at
	// least one candidate, so limit+1 windows always suffice.
	for w := 0; w <= limit; w++ {
		base := weekStart.AddDays(w * intervalWeeks * 7)
		for _, wd := range days {
			cand := base.AddDays(wd)
			if dateKey(cand) <= anchorKey {
				continue
			}
			if !emit(cand) {
				return
			}
		}
	}
}

// stepMonths emits the anchor's day-of-month applied to anchor month +
// k*interval months, clamping to the last day of short target months
// (Jan 31 -> Feb 29 in a leap year, never rolling into March).
func stepMonths(anchor model.Date, intervalMonths, limit int, emit func(model.Date) bool) {
	for k := 1; k < limit; k++ {
		months := (anchor.Year*12 + int(anchor.Month) - 1) + k*intervalMonths
		year := months / 12
		month := time.Month(months%12 + 1)

		day := anchor.Day
		if last := daysInMonth(year, month); day > last {
			day = last
		}
		if !emit(model.Date{Year: year, Month: month, Day: day}) {
			return
		}
	}
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateKey(d model.Date) int {
	return d.Year*10000 + int(d.Month)*100 + d.Day
}

// markNextUpcoming flags the earliest occurrence at or after now. A zero
// now leaves the sequence unmarked, as does a sequence that is entirely in
// the past.
func markNextUpcoming(occurrences []model.Occurrence, now time.Time) {
	if now.IsZero() {
		return
	}
	for i := range occurrences {
		if !occurrences[i].Instant.Before(now) {
			occurrences[i].NextUpcoming = true
			return
		}
	}
}
