package recur

import (
	"fmt"
	"strings"

	"github.com/teambition/rrule-go"

	"remindcal/internal/model"
)

// Weekday index 0=Sunday .. 6=Saturday, matching model.RecurrenceRule.
var rruleWeekdays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// ToRRuleString renders a validated rule as an RFC 5545 RRULE value for
// calendar interchange (ICS export and external calendar consumers).
//
// The mapping is faithful except for one documented mismatch: RFC 5545
// MONTHLY recurrence skips months shorter than the anchor day, while this
// engine clamps to the last day of the month. Consumers re-expanding the
// exported rule may therefore omit clamped occurrences.
func ToRRuleString(rule model.RecurrenceRule) (string, error) {
	if err := ValidateRule(rule); err != nil {
		return "", err
	}
	if !rule.IsRecurring() {
		return "", fmt.Errorf("%w: rule does not repeat", ErrInvalidRecurrenceRule)
	}

	opt := rrule.ROption{Interval: rule.Interval}

	switch rule.Pattern {
	case model.PatternDaily, model.PatternCustom:
		opt.Freq = rrule.DAILY
	case model.PatternWeekly:
		opt.Freq = rrule.WEEKLY
		for _, wd := range rule.Weekdays {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
		}
	case model.PatternMonthly:
		opt.Freq = rrule.MONTHLY
	case model.PatternYearly:
		opt.Freq = rrule.YEARLY
	}

	switch rule.EndCondition {
	case model.EndOnDate:
		opt.Until = rule.EndDate.UTC()
	case model.EndAfterOccurrences:
		opt.Count = rule.EndOccurrences
	}

	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecurrenceRule, err)
	}
	return opt.String(), nil
}

// FromRRuleString parses an RFC 5545 RRULE value (with or without the
// "RRULE:" prefix) into the engine's rule shape. Frequencies and clauses
// outside the engine's model (HOURLY, BYSETPOS, ordinal weekdays, ...)
// are rejected rather than silently reinterpreted.
func FromRRuleString(s string) (model.RecurrenceRule, error) {
	opt, err := rrule.StrToROption(strings.TrimPrefix(strings.TrimSpace(s), "RRULE:"))
	if err != nil {
		return model.RecurrenceRule{}, fmt.Errorf("%w: %v", ErrInvalidRecurrenceRule, err)
	}

	var rule model.RecurrenceRule

	switch opt.Freq {
	case rrule.DAILY:
		rule.Pattern = model.PatternDaily
	case rrule.WEEKLY:
		rule.Pattern = model.PatternWeekly
	case rrule.MONTHLY:
		rule.Pattern = model.PatternMonthly
	case rrule.YEARLY:
		rule.Pattern = model.PatternYearly
	default:
		return model.RecurrenceRule{}, fmt.Errorf("%w: unsupported frequency in %q", ErrInvalidRecurrenceRule, s)
	}

	rule.Interval = opt.Interval
	if rule.Interval < 1 {
		rule.Interval = 1
	}

	for _, wd := range opt.Byweekday {
		if wd.N() != 0 {
			return model.RecurrenceRule{}, fmt.Errorf("%w: ordinal weekday in %q", ErrInvalidRecurrenceRule, s)
		}
		idx, err := weekdayIndex(wd)
		if err != nil {
			return model.RecurrenceRule{}, err
		}
		rule.Weekdays = append(rule.Weekdays, idx)
	}

	if opt.Count > 0 && !opt.Until.IsZero() {
		return model.RecurrenceRule{}, fmt.Errorf("%w: both COUNT and UNTIL in %q", ErrInvalidRecurrenceRule, s)
	}
	switch {
	case opt.Count > 0:
		rule.EndCondition = model.EndAfterOccurrences
		rule.EndOccurrences = opt.Count
	case !opt.Until.IsZero():
		until := opt.Until.UTC()
		rule.EndCondition = model.EndOnDate
		rule.EndDate = &until
	default:
		rule.EndCondition = model.EndNever
	}

	if err := ValidateRule(rule); err != nil {
		return model.RecurrenceRule{}, err
	}
	return rule, nil
}

func weekdayIndex(wd rrule.Weekday) (int, error) {
	for i, known := range rruleWeekdays {
		if wd.Day() == known.Day() {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %v", ErrInvalidRecurrenceRule, wd)
}
