package recur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindcal/internal/model"
)

func TestDescribe(t *testing.T) {
	until := time.Date(2026, time.January, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rule model.RecurrenceRule
		want string
	}{
		{
			name: "none",
			rule: model.RecurrenceRule{Pattern: model.PatternNone},
			want: "Does not repeat",
		},
		{
			name: "zero value",
			rule: model.RecurrenceRule{},
			want: "Does not repeat",
		},
		{
			name: "daily",
			rule: model.RecurrenceRule{Pattern: model.PatternDaily, Interval: 1},
			want: "Every day",
		},
		{
			name: "every 3 days",
			rule: model.RecurrenceRule{Pattern: model.PatternDaily, Interval: 3},
			want: "Every 3 days",
		},
		{
			name: "custom reads as daily",
			rule: model.RecurrenceRule{Pattern: model.PatternCustom, Interval: 10},
			want: "Every 10 days",
		},
		{
			name: "weekly plain",
			rule: model.RecurrenceRule{Pattern: model.PatternWeekly, Interval: 1},
			want: "Every week",
		},
		{
			name: "every 2 weeks with days",
			rule: model.RecurrenceRule{Pattern: model.PatternWeekly, Interval: 2, Weekdays: []int{3, 1}},
			want: "Every 2 weeks on Mon, Wed",
		},
		{
			name: "weekly out-of-range days skipped",
			rule: model.RecurrenceRule{Pattern: model.PatternWeekly, Interval: 1, Weekdays: []int{9, 5}},
			want: "Every week on Fri",
		},
		{
			name: "monthly",
			rule: model.RecurrenceRule{Pattern: model.PatternMonthly, Interval: 1},
			want: "Every month",
		},
		{
			name: "yearly until",
			rule: model.RecurrenceRule{
				Pattern: model.PatternYearly, Interval: 1,
				EndCondition: model.EndOnDate, EndDate: &until,
			},
			want: "Every year until 3 Jan 2026",
		},
		{
			name: "daily N times",
			rule: model.RecurrenceRule{
				Pattern: model.PatternDaily, Interval: 1,
				EndCondition: model.EndAfterOccurrences, EndOccurrences: 5,
			},
			want: "Every day, 5 times",
		},
		{
			name: "once",
			rule: model.RecurrenceRule{
				Pattern: model.PatternMonthly, Interval: 2,
				EndCondition: model.EndAfterOccurrences, EndOccurrences: 1,
			},
			want: "Every 2 months, once",
		},
		{
			name: "unknown pattern falls back",
			rule: model.RecurrenceRule{Pattern: "lunar", Interval: 1},
			want: "Repeats",
		},
		{
			name: "zero interval reads as 1",
			rule: model.RecurrenceRule{Pattern: model.PatternWeekly},
			want: "Every week",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Describe(tc.rule, "en", time.UTC))
		})
	}
}

func TestDescribeUnknownLocaleFallsBackToEnglish(t *testing.T) {
	rule := model.RecurrenceRule{Pattern: model.PatternDaily, Interval: 1}
	assert.Equal(t, "Every day", Describe(rule, "ko", time.UTC))
	assert.Equal(t, "Every day", Describe(rule, "", nil))
}

func TestDescribeEndDateInReminderZone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// An end date entered as Jan 3 is stored as 23:59:59 local, which is
	// already Jan 4 in UTC. The phrase must show the day the user entered.
	until := time.Date(2026, time.January, 4, 4, 59, 59, 0, time.UTC)
	rule := model.RecurrenceRule{
		Pattern: model.PatternDaily, Interval: 1,
		EndCondition: model.EndOnDate, EndDate: &until,
	}

	assert.Equal(t, "Every day until 3 Jan 2026", Describe(rule, "en", loc))
	assert.Equal(t, "Every day until 4 Jan 2026", Describe(rule, "en", time.UTC))
}
