package busday

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf_DayBoundary(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{
			name: "exactly at day start belongs to the calendar date",
			at:   time.Date(2025, 3, 10, 5, 0, 0, 0, loc),
			want: "2025-03-10",
		},
		{
			name: "one minute before day start belongs to the previous date",
			at:   time.Date(2025, 3, 10, 4, 59, 0, 0, loc),
			want: "2025-03-09",
		},
		{
			name: "late evening stays on the calendar date",
			at:   time.Date(2025, 3, 10, 23, 45, 0, 0, loc),
			want: "2025-03-10",
		},
		{
			name: "shortly after midnight belongs to the previous date",
			at:   time.Date(2025, 3, 11, 0, 30, 0, 0, loc),
			want: "2025-03-10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DateOf(tt.at, "Europe/Stockholm", DefaultDayStartHour)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateOf_MonotonicWithinDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// Walk a full business day in 17-minute steps; the date must never change.
	start := time.Date(2025, 6, 1, 5, 0, 0, 0, loc)
	end := start.Add(24*time.Hour - time.Minute)
	for at := start; at.Before(end); at = at.Add(17 * time.Minute) {
		got, err := DateOf(at, "Asia/Tokyo", DefaultDayStartHour)
		require.NoError(t, err)
		assert.Equal(t, "2025-06-01", got, "at %s", at)
	}
}

func TestDateOf_UTCInstantCrossesZones(t *testing.T) {
	// 2025-03-10T02:00Z is 11:00 in Tokyo but 21:00 on 03-09 in New York.
	at := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)

	tokyo, err := DateOf(at, "Asia/Tokyo", DefaultDayStartHour)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", tokyo)

	ny, err := DateOf(at, "America/New_York", DefaultDayStartHour)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-09", ny)
}

func TestDateOf_InvalidTimezone(t *testing.T) {
	_, err := DateOf(time.Now(), "Mars/Olympus_Mons", DefaultDayStartHour)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTimezone))
}

func TestDayStart(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)

	got, err := DayStart("2025-03-10", loc, 5)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 5, 0, 0, 0, loc), got)

	_, err = DayStart("not-a-date", loc, 5)
	assert.Error(t, err)
}
