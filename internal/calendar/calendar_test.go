package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/daylog/internal/timeline"
)

const fixtureICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//daylog//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ev-1\r\n" +
	"DTSTAMP:20250309T120000Z\r\n" +
	"DTSTART:20250310T090000Z\r\n" +
	"DTEND:20250310T100000Z\r\n" +
	"SUMMARY:Platform Sync\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ev-2\r\n" +
	"DTSTAMP:20250309T120000Z\r\n" +
	"DTSTART:20250312T090000Z\r\n" +
	"DTEND:20250312T100000Z\r\n" +
	"SUMMARY:Next Week Planning\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func day(t *testing.T, s string) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return at
}

func TestDecode_FiltersByWindow(t *testing.T) {
	start := day(t, "2025-03-10T00:00:00Z")
	end := day(t, "2025-03-11T00:00:00Z")

	events, err := Decode(strings.NewReader(fixtureICS), start, end)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "Platform Sync", events[0].Summary)
	assert.Equal(t, 60*time.Minute, events[0].EndTime.Sub(events[0].StartTime))
}

func TestDecode_EmptyWindow(t *testing.T) {
	start := day(t, "2025-04-01T00:00:00Z")
	end := day(t, "2025-04-02T00:00:00Z")

	events, err := Decode(strings.NewReader(fixtureICS), start, end)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEntries_ExplicitMeetings(t *testing.T) {
	events := []Event{
		{
			Summary:   "Platform Sync",
			StartTime: day(t, "2025-03-10T09:00:00Z"),
			EndTime:   day(t, "2025-03-10T10:00:00Z"),
		},
		{
			// Wrong business date, dropped.
			Summary:   "Next Week Planning",
			StartTime: day(t, "2025-03-12T09:00:00Z"),
			EndTime:   day(t, "2025-03-12T10:00:00Z"),
		},
	}

	entries, err := Entries(events, "2025-03-10", "UTC", 5)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, timeline.MethodExplicit, e.Method)
	assert.Equal(t, "meeting", e.Category)
	assert.Equal(t, "platform sync", e.SubCategory)
	assert.InDelta(t, 0.95, e.Confidence, 1e-9)
	assert.Equal(t, 60, e.Minutes)
}

func TestEntries_DropsInvertedEvents(t *testing.T) {
	events := []Event{{
		Summary:   "Broken",
		StartTime: day(t, "2025-03-10T10:00:00Z"),
		EndTime:   day(t, "2025-03-10T09:00:00Z"),
	}}

	entries, err := Entries(events, "2025-03-10", "UTC", 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntries_InvalidTimezone(t *testing.T) {
	events := []Event{{
		Summary:   "Sync",
		StartTime: day(t, "2025-03-10T09:00:00Z"),
		EndTime:   day(t, "2025-03-10T10:00:00Z"),
	}}

	_, err := Entries(events, "2025-03-10", "Nowhere/Nothing", 5)
	assert.Error(t, err)
}
