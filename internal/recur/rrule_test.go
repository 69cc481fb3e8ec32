package recur

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindcal/internal/model"
)

func TestToRRuleString(t *testing.T) {
	s, err := ToRRuleString(model.RecurrenceRule{Pattern: model.PatternDaily, Interval: 1})
	require.NoError(t, err)
	assert.Contains(t, s, "FREQ=DAILY")

	s, err = ToRRuleString(model.RecurrenceRule{Pattern: model.PatternWeekly, Interval: 2, Weekdays: []int{1, 3}})
	require.NoError(t, err)
	assert.Contains(t, s, "FREQ=WEEKLY")
	assert.Contains(t, s, "INTERVAL=2")
	assert.Contains(t, s, "MO")
	assert.Contains(t, s, "WE")

	s, err = ToRRuleString(model.RecurrenceRule{
		Pattern: model.PatternMonthly, Interval: 1,
		EndCondition: model.EndAfterOccurrences, EndOccurrences: 6,
	})
	require.NoError(t, err)
	assert.Contains(t, s, "FREQ=MONTHLY")
	assert.Contains(t, s, "COUNT=6")

	until := time.Date(2026, time.January, 3, 9, 0, 0, 0, time.UTC)
	s, err = ToRRuleString(model.RecurrenceRule{
		Pattern: model.PatternYearly, Interval: 1,
		EndCondition: model.EndOnDate, EndDate: &until,
	})
	require.NoError(t, err)
	assert.Contains(t, s, "FREQ=YEARLY")
	assert.Contains(t, s, "UNTIL=20260103T090000Z")

	// CUSTOM has no RFC equivalent of its own; it renders as DAILY.
	s, err = ToRRuleString(model.RecurrenceRule{Pattern: model.PatternCustom, Interval: 5})
	require.NoError(t, err)
	assert.Contains(t, s, "FREQ=DAILY")
	assert.Contains(t, s, "INTERVAL=5")
}

func TestToRRuleStringErrors(t *testing.T) {
	_, err := ToRRuleString(model.RecurrenceRule{Pattern: model.PatternNone})
	assert.True(t, errors.Is(err, ErrInvalidRecurrenceRule))

	_, err = ToRRuleString(model.RecurrenceRule{Pattern: model.PatternDaily, Interval: 0})
	assert.True(t, errors.Is(err, ErrInvalidRecurrenceRule))
}

func TestFromRRuleString(t *testing.T) {
	rule, err := FromRRuleString("FREQ=DAILY;INTERVAL=3")
	require.NoError(t, err)
	assert.Equal(t, model.PatternDaily, rule.Pattern)
	assert.Equal(t, 3, rule.Interval)
	assert.Equal(t, model.EndNever, rule.EndCondition)

	// The RRULE: prefix and surrounding whitespace are tolerated.
	rule, err = FromRRuleString(" RRULE:FREQ=WEEKLY;BYDAY=MO,FR ")
	require.NoError(t, err)
	assert.Equal(t, model.PatternWeekly, rule.Pattern)
	assert.Equal(t, 1, rule.Interval, "missing INTERVAL defaults to 1")
	assert.ElementsMatch(t, []int{1, 5}, rule.Weekdays)

	rule, err = FromRRuleString("FREQ=MONTHLY;COUNT=12")
	require.NoError(t, err)
	assert.Equal(t, model.PatternMonthly, rule.Pattern)
	assert.Equal(t, model.EndAfterOccurrences, rule.EndCondition)
	assert.Equal(t, 12, rule.EndOccurrences)

	rule, err = FromRRuleString("FREQ=YEARLY;UNTIL=20270101T000000Z")
	require.NoError(t, err)
	assert.Equal(t, model.PatternYearly, rule.Pattern)
	require.Equal(t, model.EndOnDate, rule.EndCondition)
	require.NotNil(t, rule.EndDate)
	assert.True(t, rule.EndDate.Equal(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFromRRuleStringRejectsUnsupported(t *testing.T) {
	unsupported := []string{
		"FREQ=HOURLY",
		"FREQ=MINUTELY;INTERVAL=30",
		"FREQ=MONTHLY;BYDAY=2TU", // ordinal weekday
		"not an rrule",
	}
	for _, s := range unsupported {
		_, err := FromRRuleString(s)
		require.Error(t, err, "input %q", s)
		assert.True(t, errors.Is(err, ErrInvalidRecurrenceRule), "input %q", s)
	}
}

func TestRRuleRoundTrip(t *testing.T) {
	until := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	rules := []model.RecurrenceRule{
		{Pattern: model.PatternDaily, Interval: 2, EndCondition: model.EndNever},
		{Pattern: model.PatternWeekly, Interval: 1, Weekdays: []int{0, 2, 4}, EndCondition: model.EndNever},
		{Pattern: model.PatternMonthly, Interval: 3, EndCondition: model.EndAfterOccurrences, EndOccurrences: 4},
		{Pattern: model.PatternYearly, Interval: 1, EndCondition: model.EndOnDate, EndDate: &until},
	}

	for _, rule := range rules {
		s, err := ToRRuleString(rule)
		require.NoError(t, err)
		back, err := FromRRuleString(s)
		require.NoError(t, err, "rendered %q", s)

		assert.Equal(t, rule.Pattern, back.Pattern)
		assert.Equal(t, rule.Interval, back.Interval)
		assert.ElementsMatch(t, rule.Weekdays, back.Weekdays)
		assert.Equal(t, rule.EndCondition, back.EndCondition)
		assert.Equal(t, rule.EndOccurrences, back.EndOccurrences)
		if rule.EndDate != nil {
			require.NotNil(t, back.EndDate)
			assert.True(t, back.EndDate.Equal(*rule.EndDate))
		}
	}
}
