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

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{in: "00:00", hour: 0, minute: 0},
		{in: "09:30", hour: 9, minute: 30},
		{in: "23:59", hour: 23, minute: 59},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "9:30", wantErr: true},
		{in: "0930", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
		{in: "12:3", wantErr: true},
	}

	for _, tc := range tests {
		h, m, err := ParseClock(tc.in)
		if tc.wantErr {
			require.Error(t, err, "input %q", tc.in)
			assert.True(t, errors.Is(err, ErrInvalidTimeFormat), "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.hour, h, "input %q", tc.in)
		assert.Equal(t, tc.minute, m, "input %q", tc.in)
	}
}

func TestComposeDueInstant(t *testing.T) {
	date := model.Date{Year: 2024, Month: time.January, Day: 1}

	// London is on UTC in January.
	got, err := ComposeDueInstant(date, "09:00", "Europe/London")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)))

	// Seoul is UTC+9 year round.
	got, err = ComposeDueInstant(date, "09:00", "Asia/Seoul")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestComposeDueInstantDateOnly(t *testing.T) {
	// No due time anchors at local midnight.
	date := model.Date{Year: 2024, Month: time.June, Day: 1}
	got, err := ComposeDueInstant(date, "", "America/New_York")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, time.June, 1, 4, 0, 0, 0, time.UTC)), "got %s", got)
}

func TestComposeDueInstantErrors(t *testing.T) {
	date := model.Date{Year: 2024, Month: time.January, Day: 1}

	_, err := ComposeDueInstant(date, "25:00", "UTC")
	assert.True(t, errors.Is(err, ErrInvalidTimeFormat))

	_, err = ComposeDueInstant(date, "09:00", "Not/A_Zone")
	assert.True(t, errors.Is(err, tz.ErrInvalidTimezone))
}
