package recur

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"remindcal/internal/model"
)

var shortWeekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Describe renders a recurrence rule to a human-readable phrase, e.g.
// "Every 2 weeks on Mon, Wed" or "Every year until 3 Jan 2026". The end
// date is shown as the calendar day in loc (the reminder's zone); a nil
// loc reads as UTC. Only English strings ship; unknown locales fall back
// to English. Unrecognized rule shapes fall back to a generic "Repeats"
// rather than failing.
func Describe(rule model.RecurrenceRule, locale string, loc *time.Location) string {
	_ = locale // only "en" is implemented

	if loc == nil {
		loc = time.UTC
	}

	if !rule.IsRecurring() {
		return "Does not repeat"
	}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	var b strings.Builder
	switch rule.Pattern {
	case model.PatternDaily, model.PatternCustom:
		b.WriteString(every(interval, "day", "days"))
	case model.PatternWeekly:
		b.WriteString(every(interval, "week", "weeks"))
		if names := weekdayNames(rule.Weekdays); names != "" {
			b.WriteString(" on ")
			b.WriteString(names)
		}
	case model.PatternMonthly:
		b.WriteString(every(interval, "month", "months"))
	case model.PatternYearly:
		b.WriteString(every(interval, "year", "years"))
	default:
		return "Repeats"
	}

	switch rule.EndCondition {
	case model.EndOnDate:
		if rule.EndDate != nil {
			b.WriteString(" until ")
			b.WriteString(rule.EndDate.In(loc).Format("2 Jan 2006"))
		}
	case model.EndAfterOccurrences:
		switch {
		case rule.EndOccurrences == 1:
			b.WriteString(", once")
		case rule.EndOccurrences > 1:
			b.WriteString(fmt.Sprintf(", %d times", rule.EndOccurrences))
		}
	}

	return b.String()
}

func every(interval int, singular, plural string) string {
	if interval == 1 {
		return "Every " + singular
	}
	return fmt.Sprintf("Every %d %s", interval, plural)
}

// weekdayNames renders a weekday set as "Mon, Wed". Out-of-range values
// are skipped so the describer never fails on input the expander would
// have rejected.
func weekdayNames(weekdays []int) string {
	days := append([]int(nil), weekdays...)
	sort.Ints(days)

	names := make([]string, 0, len(days))
	for _, wd := range days {
		if wd < 0 || wd > 6 {
			continue
		}
		names = append(names, shortWeekdays[wd])
	}
	return strings.Join(names, ", ")
}
